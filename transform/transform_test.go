package transform

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/facebookincubator/go-belt"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/fxpipeline/detector"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/fxpipeline/watermark"
)

func testCtx(t *testing.T) context.Context {
	ctx := logger.CtxWithLogrus(context.Background(), logger.LevelTrace)
	t.Cleanup(func() { belt.Flush(ctx) })
	return ctx
}

func newTestFrame(w, h int) *frame.Frame {
	f := frame.New(w, h, 0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.Image.SetRGBA(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: uint8(x ^ y), A: 0xff})
		}
	}
	return f
}

func adapterOf[R any](fn detector.DetectFunc[R]) *detector.Adapter[R] {
	return detector.NewAdapter[R](detector.NewFuncService("test", fn))
}

func resultOf[R any](r R) *detector.Adapter[R] {
	return adapterOf(func(ctx context.Context, img *image.RGBA) (R, error) {
		return r, nil
	})
}

func failing[R any]() *detector.Adapter[R] {
	return adapterOf(func(ctx context.Context, img *image.RGBA) (R, error) {
		var zero R
		return zero, errors.New("unable to detect anything")
	})
}

func panicking[R any]() *detector.Adapter[R] {
	return adapterOf(func(ctx context.Context, img *image.RGBA) (R, error) {
		panic("boom")
	})
}

func allVariants(
	faces *detector.Adapter[[]detector.Face],
	segmentation *detector.Adapter[*detector.SegmentationMask],
	meshes *detector.Adapter[[]detector.FaceMesh],
	poses *detector.Adapter[[]detector.Pose],
	objects *detector.Adapter[[]detector.Object],
	labels *detector.Adapter[[]detector.Label],
) []Abstract {
	return []Abstract{
		NewFaceOutline(faces),
		NewBackgroundBlur(segmentation),
		NewFaceMesh(meshes),
		NewPoseDetection(poses),
		NewObjectDetection(objects),
		NewImageLabeling(labels),
	}
}

func TestKinds(t *testing.T) {
	require.Equal(t, []Kind{
		KindFaceOutline,
		KindBackgroundBlur,
		KindFaceMesh,
		KindPoseDetection,
		KindObjectDetection,
		KindImageLabeling,
		KindWatermark,
	}, Kinds())

	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, parsed)
	}
	_, err := ParseKind("sepia")
	require.Error(t, err)
}

func TestPassThroughOnFailure(t *testing.T) {
	ctx := testCtx(t)
	for name, variants := range map[string][]Abstract{
		"failing": allVariants(
			failing[[]detector.Face](),
			failing[*detector.SegmentationMask](),
			failing[[]detector.FaceMesh](),
			failing[[]detector.Pose](),
			failing[[]detector.Object](),
			failing[[]detector.Label](),
		),
		"panicking": allVariants(
			panicking[[]detector.Face](),
			panicking[*detector.SegmentationMask](),
			panicking[[]detector.FaceMesh](),
			panicking[[]detector.Pose](),
			panicking[[]detector.Object](),
			panicking[[]detector.Label](),
		),
		"empty": allVariants(
			resultOf[[]detector.Face](nil),
			resultOf(detector.NewSegmentationMask(3, 3)),
			resultOf[[]detector.FaceMesh](nil),
			resultOf[[]detector.Pose](nil),
			resultOf[[]detector.Object](nil),
			resultOf[[]detector.Label](nil),
		),
		"no_service": allVariants(nil, nil, nil, nil, nil, nil),
	} {
		t.Run(name, func(t *testing.T) {
			for _, tr := range variants {
				t.Run(tr.Kind().String(), func(t *testing.T) {
					in := newTestFrame(64, 48)
					orig := in.Clone()
					out := tr.Apply(ctx, in)
					require.True(t, out == in)
					require.True(t, out.Equal(orig))
				})
			}
		})
	}
}

func TestPassThroughMalformed(t *testing.T) {
	ctx := testCtx(t)
	faces := []detector.Face{{Box: image.Rect(0, 0, 10, 10)}}
	tr := NewFaceOutline(resultOf(faces))

	in := frame.Wrap(&image.RGBA{}, 0)
	require.True(t, tr.Apply(ctx, in) == in)

	broken := frame.Wrap(&image.RGBA{Rect: image.Rect(0, 0, 10, 10), Stride: 40, Pix: make([]uint8, 8)}, 0)
	require.True(t, tr.Apply(ctx, broken) == broken)
}

func TestGuardRecoversPanic(t *testing.T) {
	ctx := testCtx(t)
	in := newTestFrame(8, 8)
	tr := NewFaceOutline(nil)
	out := guard(ctx, tr, in, func(ctx context.Context) (*frame.Frame, error) {
		var m map[string]int
		m["a"] = 1
		return nil, nil
	})
	require.True(t, out == in)
}

func TestGuardRejectsResize(t *testing.T) {
	ctx := testCtx(t)
	in := newTestFrame(8, 8)
	out := guard(ctx, NewFaceOutline(nil), in, func(ctx context.Context) (*frame.Frame, error) {
		return frame.New(4, 4, 0), nil
	})
	require.True(t, out == in)
}

func TestFaceOutline(t *testing.T) {
	ctx := testCtx(t)
	faces := []detector.Face{{Box: image.Rect(20, 10, 60, 50)}}
	tr := NewFaceOutline(resultOf(faces))

	in := newTestFrame(80, 60)
	orig := in.Clone()
	out := tr.Apply(ctx, in)
	require.False(t, out == in)
	require.True(t, in.Equal(orig))

	red := color.RGBA{R: 0xff, A: 0xff}
	require.Equal(t, red, out.At(40, 11), "top of the oval")
	require.Equal(t, red, out.At(21, 30), "left of the oval")
	require.Equal(t, orig.At(40, 30), out.At(40, 30), "center")
	require.Equal(t, orig.At(1, 1), out.At(1, 1), "corner")
}

func TestFaceOutlineOffFrame(t *testing.T) {
	ctx := testCtx(t)
	faces := []detector.Face{{Box: image.Rect(-1000, -1000, 5000, 5000)}}
	out := NewFaceOutline(resultOf(faces)).Apply(ctx, newTestFrame(40, 30))
	require.Equal(t, 40, out.Width())
	require.Equal(t, 30, out.Height())
}

func TestFaceMesh(t *testing.T) {
	ctx := testCtx(t)
	meshes := []detector.FaceMesh{{Points: []image.Point{{10, 10}, {30, 20}, {-5, 500}}}}
	in := newTestFrame(720, 40)
	out := NewFaceMesh(resultOf(meshes)).Apply(ctx, in)

	green := color.RGBA{G: 0xff, A: 0xff}
	require.Equal(t, green, out.At(10, 10))
	require.Equal(t, green, out.At(12, 10), "radius is 720/360=2")
	require.Equal(t, green, out.At(30, 20))
	require.Equal(t, in.At(13, 10), out.At(13, 10))
}

func TestMeshDotRadius(t *testing.T) {
	require.Equal(t, 1, MeshDotRadius(100))
	require.Equal(t, 2, MeshDotRadius(720))
	require.Equal(t, 5, MeshDotRadius(1920))
}

func TestPoseDetection(t *testing.T) {
	ctx := testCtx(t)
	poses := []detector.Pose{{Landmarks: []detector.PoseLandmark{
		{Type: detector.PoseLandmarkLeftShoulder, Position: image.Pt(10, 10), Confidence: 0.9},
		{Type: detector.PoseLandmarkRightShoulder, Position: image.Pt(50, 10), Confidence: 0.9},
		{Type: detector.PoseLandmarkNose, Position: image.Pt(30, 40), Confidence: 0.1},
	}}}
	tr := NewPoseDetection(resultOf(poses))
	in := newTestFrame(64, 48)
	out := tr.Apply(ctx, in)

	require.Equal(t, tr.BoneColor, out.At(30, 10))
	require.Equal(t, tr.JointColor, out.At(10, 10))
	require.Equal(t, in.At(30, 40), out.At(30, 40), "below the confidence threshold")
}

func TestObjectDetection(t *testing.T) {
	ctx := testCtx(t)
	objects := []detector.Object{
		{Box: image.Rect(10, 20, 40, 40), Labels: []detector.Label{{Text: "cup", Confidence: 0.3}, {Text: "mug", Confidence: 1}}},
		{Box: image.Rect(100, 100, 200, 200)},
	}
	tr := NewObjectDetection(resultOf(objects))
	in := newTestFrame(64, 48)
	out := tr.Apply(ctx, in)

	require.Equal(t, tr.Color, out.At(10, 30))
	require.Equal(t, colorForText("mug"), out.At(20, 19))
	require.Equal(t, in.At(25, 30), out.At(25, 30))
}

func TestImageLabeling(t *testing.T) {
	ctx := testCtx(t)
	labels := []detector.Label{{Text: "indoor", Confidence: 1}, {Text: "person", Confidence: 0.5}}
	in := newTestFrame(400, 300)
	out := NewImageLabeling(resultOf(labels)).Apply(ctx, in)

	// margin 4, bar height 5, max width 100
	require.Equal(t, colorForText("indoor"), out.At(4, 4))
	require.Equal(t, colorForText("indoor"), out.At(103, 4))
	require.Equal(t, colorForText("person"), out.At(53, 13))
	require.NotEqual(t, colorForText("person"), out.At(54, 13))
	require.Equal(t, in.At(300, 200), out.At(300, 200))
}

func TestBackgroundBlurSelection(t *testing.T) {
	ctx := testCtx(t)
	in := newTestFrame(128, 64)
	orig := in.Clone()
	blurred := frame.Wrap(Blur(in.Image), 0)
	require.False(t, blurred.Equal(orig))

	for _, tc := range []struct {
		Value        float32
		WantOriginal bool
	}{
		{1.0, true},
		{0.61, true},
		{0.6, false},
		{0.0, false},
	} {
		mask := detector.NewSegmentationMask(128, 64).Fill(tc.Value)
		out := NewBackgroundBlur(resultOf(mask)).Apply(ctx, in)
		require.True(t, in.Equal(orig))
		if tc.WantOriginal {
			require.True(t, out.Equal(orig), "%v", tc.Value)
		} else {
			require.True(t, out.Equal(blurred), "%v", tc.Value)
		}
	}
}

func TestBackgroundBlurHalfMask(t *testing.T) {
	ctx := testCtx(t)
	in := newTestFrame(64, 32)
	blurred := Blur(in.Image)
	mask := detector.NewSegmentationMask(64, 32)
	for y := 0; y < 32; y++ {
		for x := 32; x < 64; x++ {
			mask.Set(x, y, 0.9)
		}
	}
	out := NewBackgroundBlur(resultOf(mask)).Apply(ctx, in)
	require.Equal(t, blurred.RGBAAt(5, 5), out.At(5, 5))
	require.Equal(t, in.At(40, 5), out.At(40, 5))
}

func TestBackgroundBlurMaskMismatch(t *testing.T) {
	ctx := testCtx(t)
	in := newTestFrame(64, 32)
	out := NewBackgroundBlur(resultOf(detector.NewSegmentationMask(32, 32))).Apply(ctx, in)
	require.True(t, out == in)
}

func TestBlurKeepsSizeAndOpacity(t *testing.T) {
	for _, size := range []image.Point{{1, 1}, {3, 5}, {720, 480}} {
		img := newTestFrame(size.X, size.Y).Image
		b := Blur(img)
		require.Equal(t, size, b.Rect.Size())
		for i := 3; i < len(b.Pix); i += 4 {
			if b.Pix[i] != 0xff {
				t.Fatalf("pixel %d of %v is not opaque: %d", i/4, size, b.Pix[i])
			}
		}
	}
}

func TestWatermarkTransform(t *testing.T) {
	ctx := testCtx(t)
	in := newTestFrame(64, 48)

	require.True(t, NewWatermark(nil, watermark.Spec{}).Apply(ctx, in) == in)

	spec := watermark.Spec{
		Overlay:      watermark.DefaultOverlay(),
		Location:     watermark.LocationTopLeft,
		SizeFraction: 0.5,
	}
	out := NewWatermark(nil, spec).Apply(ctx, in)
	require.False(t, out == in)
	require.Equal(t, KindWatermark, NewWatermark(nil, spec).Kind())
}

package watermark

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/facebookincubator/go-belt"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/logger"
)

func newTestFrame(w, h int) *frame.Frame {
	f := frame.New(w, h, 0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.Image.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x40, A: 0xff})
		}
	}
	return f
}

func newSolidOverlay(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestCompositeNoOverlay(t *testing.T) {
	f := newTestFrame(64, 48)
	orig := f.Clone()

	out := Composite(f, nil, LocationBottomRight, 12, 0.2)
	require.True(t, out == f)
	require.True(t, out.Equal(orig))
}

func TestPlacementTopLeftNoResize(t *testing.T) {
	rect := Placement(image.Pt(200, 200), image.Pt(100, 50), LocationTopLeft, 10, 0.5)
	require.Equal(t, image.Rect(10, 10, 110, 60), rect)
}

func TestPlacementBottomRight(t *testing.T) {
	// 640x480 with 0.1 gives a 64x48 target, which a 64x48 overlay fits exactly.
	rect := Placement(image.Pt(640, 480), image.Pt(64, 48), LocationBottomRight, 12, 0.1)
	require.Equal(t, image.Pt(564, 420), rect.Min)
	require.Equal(t, image.Pt(64, 48), rect.Size())
}

func TestPlacementAnchors(t *testing.T) {
	frameSize := image.Pt(400, 300)
	overlaySize := image.Pt(40, 30)
	for _, tc := range []struct {
		Location Location
		Expected image.Point
	}{
		{LocationTopLeft, image.Pt(5, 5)},
		{LocationTopRight, image.Pt(355, 5)},
		{LocationBottomLeft, image.Pt(5, 265)},
		{LocationBottomRight, image.Pt(355, 265)},
		{LocationCenter, image.Pt(180, 140)},
	} {
		t.Run(tc.Location.String(), func(t *testing.T) {
			rect := Placement(frameSize, overlaySize, tc.Location, 5, 0.1)
			require.Equal(t, tc.Expected, rect.Min)
			require.Equal(t, overlaySize, rect.Size())
		})
	}
}

func TestPlacementClamped(t *testing.T) {
	frameSize := image.Pt(320, 240)
	for _, loc := range Locations() {
		for _, margin := range []float64{320, 1000, -1000} {
			rect := Placement(frameSize, image.Pt(50, 50), loc, margin, 0.2)
			require.True(t, rect.In(image.Rect(0, 0, 320, 240)), "%s %v: %v", loc, margin, rect)
		}
	}
}

func TestFitSize(t *testing.T) {
	// aspect ratio is preserved, the box is never exceeded
	require.Equal(t, image.Pt(100, 50), FitSize(image.Pt(200, 200), image.Pt(100, 50), 0.5))
	require.Equal(t, image.Pt(40, 20), FitSize(image.Pt(200, 200), image.Pt(400, 200), 0.2))
	require.Equal(t, image.Pt(24, 48), FitSize(image.Pt(640, 480), image.Pt(100, 200), 0.1))

	// the fraction is clamped
	require.Equal(t, FitSize(image.Pt(200, 200), image.Pt(10, 10), 1), FitSize(image.Pt(200, 200), image.Pt(10, 10), 7))
	require.Equal(t, image.Pt(2, 2), FitSize(image.Pt(200, 200), image.Pt(10, 10), 0))

	// never smaller than a pixel
	require.Equal(t, image.Pt(1, 1), FitSize(image.Pt(10, 10), image.Pt(1000, 10), 0.01))
}

func TestClampSizeFraction(t *testing.T) {
	require.Equal(t, MinSizeFraction, ClampSizeFraction(-1))
	require.Equal(t, MaxSizeFraction, ClampSizeFraction(1.5))
	require.Equal(t, 0.3, ClampSizeFraction(0.3))
}

func TestCompositeDraws(t *testing.T) {
	f := newTestFrame(200, 200)
	orig := f.Clone()
	red := color.RGBA{R: 0xff, A: 0xff}
	overlay := newSolidOverlay(100, 50, red)

	out := Composite(f, overlay, LocationTopLeft, 10, 0.5)
	require.False(t, out == f)
	require.True(t, f.Equal(orig), "the input must not be modified")
	require.Equal(t, 200, out.Width())
	require.Equal(t, 200, out.Height())

	require.Equal(t, red, out.At(10, 10))
	require.Equal(t, red, out.At(109, 59))
	require.Equal(t, orig.At(9, 10), out.At(9, 10))
	require.Equal(t, orig.At(110, 59), out.At(110, 59))
	require.Equal(t, orig.At(109, 60), out.At(109, 60))
}

func TestCompositeTransparentOverlay(t *testing.T) {
	f := newTestFrame(100, 100)
	overlay := newSolidOverlay(10, 10, color.RGBA{})
	out := Composite(f, overlay, LocationCenter, 0, 0.1)
	require.True(t, out.Equal(f))
}

func TestCompositorCachesResize(t *testing.T) {
	ctx := logger.CtxWithLogrus(context.Background(), logger.LevelTrace)
	defer belt.Flush(ctx)

	c := NewCompositor()
	spec := Spec{
		Overlay:      newSolidOverlay(100, 100, color.RGBA{G: 0xff, A: 0xff}),
		Location:     LocationBottomRight,
		MarginPx:     4,
		SizeFraction: 0.25,
	}
	for i := 0; i < 5; i++ {
		f := newTestFrame(160, 120)
		out := c.Composite(ctx, f, spec)
		require.Equal(t, color.RGBA{G: 0xff, A: 0xff}, out.At(160-4-1, 120-4-1))
		out.Release()
		f.Release()
	}
	require.Equal(t, uint64(1), c.ResizeCount(ctx))

	out := c.Composite(ctx, newTestFrame(320, 240), spec)
	require.Equal(t, 320, out.Width())
	require.Equal(t, uint64(2), c.ResizeCount(ctx))
}

func TestParseLocation(t *testing.T) {
	l, err := ParseLocation("Bottom-Right")
	require.NoError(t, err)
	require.Equal(t, LocationBottomRight, l)

	l, err = ParseLocation("")
	require.NoError(t, err)
	require.Equal(t, DefaultLocation, l)

	_, err = ParseLocation("somewhere")
	require.Error(t, err)
}

func TestDefaultOverlay(t *testing.T) {
	img := DefaultOverlay()
	require.False(t, img.Bounds().Empty())
}

package transform

import (
	"context"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	bildtransform "github.com/anthonynsimon/bild/transform"
	"github.com/xaionaro-go/fxpipeline/detector"
	"github.com/xaionaro-go/fxpipeline/frame"
)

const (
	// ForegroundThreshold is the mask value a pixel must exceed to be
	// kept sharp.
	ForegroundThreshold = 0.6

	// BlurSampleFactor is how much the frame is downsampled before blurring.
	BlurSampleFactor = 2
)

// BackgroundBlur keeps the subject sharp and blurs everything else, as
// told by a person-segmentation mask.
type BackgroundBlur struct {
	Detector *detector.Adapter[*detector.SegmentationMask]
}

var _ Abstract = (*BackgroundBlur)(nil)

func NewBackgroundBlur(d *detector.Adapter[*detector.SegmentationMask]) *BackgroundBlur {
	return &BackgroundBlur{
		Detector: d,
	}
}

func (t *BackgroundBlur) Kind() Kind {
	return KindBackgroundBlur
}

func (t *BackgroundBlur) String() string {
	return fmt.Sprintf("BackgroundBlur(%s)", t.Detector)
}

func (t *BackgroundBlur) Apply(ctx context.Context, in *frame.Frame) *frame.Frame {
	return guard(ctx, t, in, func(ctx context.Context) (*frame.Frame, error) {
		mask, err := t.Detector.Detect(ctx, in.Image)
		if err != nil {
			return nil, fmt.Errorf("unable to segment the frame: %w", err)
		}
		if err := mask.Validate(); err != nil {
			return nil, fmt.Errorf("invalid segmentation mask: %w", err)
		}
		if mask.Width != in.Width() || mask.Height != in.Height() {
			return nil, fmt.Errorf("the mask size %dx%d does not match the frame size %s", mask.Width, mask.Height, in.Resolution())
		}
		blurred := Blur(in.Image)
		out := in.Clone()
		SelectByMask(out.Image, in.Image, blurred, mask)
		return out, nil
	})
}

// BlurRadius is the box blur radius (in full resolution pixels) for the
// given frame width.
func BlurRadius(frameWidth int) int {
	return frameWidth / 32
}

// Blur returns a uniformly blurred copy of the image, of the same size and
// with its origin at (0, 0).
func Blur(img *image.RGBA) *image.RGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	radius := float64(BlurRadius(w)) / BlurSampleFactor
	smallW := max(1, w/BlurSampleFactor)
	smallH := max(1, h/BlurSampleFactor)

	small := bildtransform.Resize(img, smallW, smallH, bildtransform.Linear)
	if radius > 0 {
		small = blur.Box(small, radius)
	}
	result := bildtransform.Resize(small, w, h, bildtransform.Linear)
	for i := 3; i < len(result.Pix); i += 4 {
		result.Pix[i] = 0xff
	}
	return result
}

// SelectByMask writes into dst, pixel by pixel, the original pixel where
// the mask value is strictly greater than ForegroundThreshold and the
// blurred one otherwise. All the images and the mask must be of the same
// size.
func SelectByMask(
	dst *image.RGBA,
	original *image.RGBA,
	blurred *image.RGBA,
	mask *detector.SegmentationMask,
) {
	w, h := mask.Width, mask.Height
	for y := 0; y < h; y++ {
		dstRow := dst.Pix[dst.PixOffset(dst.Rect.Min.X, dst.Rect.Min.Y+y):]
		origRow := original.Pix[original.PixOffset(original.Rect.Min.X, original.Rect.Min.Y+y):]
		blurRow := blurred.Pix[blurred.PixOffset(blurred.Rect.Min.X, blurred.Rect.Min.Y+y):]
		maskRow := mask.Confidence[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			src := blurRow
			if maskRow[x] > ForegroundThreshold {
				src = origRow
			}
			copy(dstRow[4*x:4*x+4], src[4*x:4*x+4])
		}
	}
}

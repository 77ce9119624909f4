package watermark

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/xaionaro-go/fxpipeline/logger"
)

// LoadOverlay reads an overlay image from disk (any format supported by
// imaging, with EXIF orientation applied).
func LoadOverlay(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("unable to open watermark image '%s': %w", path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("watermark image '%s' is empty", path)
	}
	return img, nil
}

// LoadOverlayOrDefault is LoadOverlay that falls back to DefaultOverlay if
// the path is empty or cannot be loaded.
func LoadOverlayOrDefault(ctx context.Context, path string) image.Image {
	if path == "" {
		return DefaultOverlay()
	}
	img, err := LoadOverlay(path)
	if err != nil {
		logger.Warnf(ctx, "using the default watermark: %v", err)
		return DefaultOverlay()
	}
	return img
}

var defaultOverlay = newDefaultOverlay()

// DefaultOverlay returns the built-in overlay: a translucent dark badge
// with a white frame. The returned image is shared and must not be modified.
func DefaultOverlay() image.Image {
	return defaultOverlay
}

func newDefaultOverlay() *image.NRGBA {
	const (
		w      = 160
		h      = 60
		border = 3
	)
	img := imaging.New(w, h, color.NRGBA{R: 0x10, G: 0x10, B: 0x10, A: 0x90})
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xe0}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			onBorder := x < border || y < border || x >= w-border || y >= h-border
			onStripe := y > h/3 && y < 2*h/3 && ((x-y)%12+12)%12 < 4 && x > w/6 && x < 5*w/6
			if onBorder || onStripe {
				img.SetNRGBA(x, y, white)
			}
		}
	}
	return img
}

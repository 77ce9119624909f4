package watermark

import (
	"context"
	"image"
	"image/draw"
	"reflect"

	"github.com/disintegration/imaging"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/xsync"
)

// Composite draws the overlay onto a copy of the frame and returns the copy.
// If overlay is nil, the very same frame is returned.
func Composite(
	f *frame.Frame,
	overlay image.Image,
	location Location,
	marginPx float64,
	sizeFraction float64,
) *frame.Frame {
	return composite(f, overlay, location, marginPx, sizeFraction, resize)
}

func resize(img image.Image, size image.Point) image.Image {
	return imaging.Resize(img, size.X, size.Y, imaging.Lanczos)
}

func composite(
	f *frame.Frame,
	overlay image.Image,
	location Location,
	marginPx float64,
	sizeFraction float64,
	resizeFn func(image.Image, image.Point) image.Image,
) *frame.Frame {
	if overlay == nil || f == nil || f.Validate() != nil {
		return f
	}
	overlayBounds := overlay.Bounds()
	if overlayBounds.Empty() {
		return f
	}

	rect := Placement(f.Bounds().Size(), overlayBounds.Size(), location, marginPx, sizeFraction)
	scaled := overlay
	if rect.Size() != overlayBounds.Size() {
		scaled = resizeFn(overlay, rect.Size())
	}

	out := f.Clone()
	draw.Draw(out.Image, rect.Add(out.Image.Rect.Min), scaled, scaled.Bounds().Min, draw.Over)
	return out
}

type cacheKey struct {
	Overlay image.Image
	Size    image.Point
}

// Compositor is Composite with a cache of the last resized overlay, so that
// a steady stream of same-sized frames resizes the overlay only once.
//
// It is safe for concurrent use.
type Compositor struct {
	locker xsync.Mutex
	key    cacheKey
	scaled image.Image

	resizeCount uint64
}

func NewCompositor() *Compositor {
	return &Compositor{}
}

func (c *Compositor) Composite(
	ctx context.Context,
	f *frame.Frame,
	spec Spec,
) *frame.Frame {
	logger.Tracef(ctx, "Composite")
	defer logger.Tracef(ctx, "/Composite")
	return composite(
		f,
		spec.Overlay,
		spec.Location,
		spec.MarginPx,
		spec.SizeFraction,
		func(img image.Image, size image.Point) image.Image {
			return c.resize(ctx, img, size)
		},
	)
}

func (c *Compositor) resize(
	ctx context.Context,
	img image.Image,
	size image.Point,
) image.Image {
	if !reflect.TypeOf(img).Comparable() {
		return resize(img, size)
	}
	key := cacheKey{Overlay: img, Size: size}
	return xsync.DoR1(ctx, &c.locker, func() image.Image {
		if c.scaled != nil && c.key == key {
			return c.scaled
		}
		logger.Debugf(ctx, "resizing the watermark overlay %v -> %v", img.Bounds().Size(), size)
		c.key = key
		c.scaled = resize(img, size)
		c.resizeCount++
		return c.scaled
	})
}

// ResizeCount returns how many times the overlay was actually resized.
func (c *Compositor) ResizeCount(ctx context.Context) uint64 {
	return xsync.DoR1(ctx, &c.locker, func() uint64 {
		return c.resizeCount
	})
}

// Package frame defines the pixel buffer that flows through the effects
// pipeline: an opaque 32-bit RGBA image plus its capture timestamp.
package frame

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"
	"time"
)

// Frame is owned by exactly one stage at a time. A stage either returns the
// very same Frame or a new one; it never returns nil.
type Frame struct {
	Image     *image.RGBA
	Timestamp time.Duration

	pix      []uint8
	released atomic.Bool
}

// New returns an opaque black frame.
func New(width, height int, ts time.Duration) *Frame {
	f := newUninitialized(width, height, ts)
	pix := f.Image.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i+0] = 0
		pix[i+1] = 0
		pix[i+2] = 0
		pix[i+3] = 0xff
	}
	return f
}

func newUninitialized(width, height int, ts time.Duration) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	f := Pool.Get()
	size := 4 * width * height
	if cap(f.pix) < size {
		f.pix = make([]uint8, size)
	}
	f.Image = &image.RGBA{
		Pix:    f.pix[:size],
		Stride: 4 * width,
		Rect:   image.Rect(0, 0, width, height),
	}
	f.Timestamp = ts
	f.released.Store(false)
	return f
}

// FromImage copies an arbitrary image into a new frame. Transparent source
// pixels are composed over black, since frames are always opaque.
func FromImage(img image.Image, ts time.Duration) *Frame {
	b := img.Bounds()
	f := New(b.Dx(), b.Dy(), ts)
	draw.Draw(f.Image, f.Image.Rect, img, b.Min, draw.Over)
	return f
}

// Wrap turns an existing RGBA image into a frame without copying. The
// frame takes the ownership of the image.
func Wrap(img *image.RGBA, ts time.Duration) *Frame {
	return &Frame{
		Image:     img,
		Timestamp: ts,
		pix:       img.Pix,
	}
}

func (f *Frame) Width() int {
	return f.Image.Rect.Dx()
}

func (f *Frame) Height() int {
	return f.Image.Rect.Dy()
}

func (f *Frame) Bounds() image.Rectangle {
	return f.Image.Rect
}

func (f *Frame) Resolution() Resolution {
	return Resolution{
		Width:  uint32(f.Width()),
		Height: uint32(f.Height()),
	}
}

// Clone returns a deep copy with the same timestamp; the copy is normalized
// to start at (0, 0).
func (f *Frame) Clone() *Frame {
	w, h := f.Width(), f.Height()
	dup := newUninitialized(w, h, f.Timestamp)
	if f.Image.Rect.Min == (image.Point{}) && f.Image.Stride == dup.Image.Stride {
		copy(dup.Image.Pix, f.Image.Pix[:len(dup.Image.Pix)])
		return dup
	}
	for y := 0; y < h; y++ {
		srcOff := f.Image.PixOffset(f.Image.Rect.Min.X, f.Image.Rect.Min.Y+y)
		dstOff := y * dup.Image.Stride
		copy(dup.Image.Pix[dstOff:dstOff+4*w], f.Image.Pix[srcOff:srcOff+4*w])
	}
	return dup
}

// Release hands the buffer back to the pool. The frame must not be used
// afterwards. Releasing nil or releasing twice is a no-op.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	if f.released.Swap(true) {
		return
	}
	Pool.Put(f)
}

// Validate reports whether the frame can be processed at all.
func (f *Frame) Validate() error {
	switch {
	case f == nil:
		return fmt.Errorf("the frame is nil")
	case f.Image == nil:
		return fmt.Errorf("the frame has no image")
	case f.Image.Rect.Empty():
		return fmt.Errorf("the frame is empty: %v", f.Image.Rect)
	case f.Image.Stride < 4*f.Image.Rect.Dx():
		return fmt.Errorf("the stride %d is too small for width %d", f.Image.Stride, f.Image.Rect.Dx())
	case len(f.Image.Pix) < f.Image.PixOffset(f.Image.Rect.Max.X-1, f.Image.Rect.Max.Y-1)+4:
		return fmt.Errorf("the pixel buffer is too short: %d", len(f.Image.Pix))
	}
	return nil
}

// At is a shorthand used mostly by tests.
func (f *Frame) At(x, y int) color.RGBA {
	return f.Image.RGBAAt(x, y)
}

// Equal reports whether two frames have the same size and the same pixels.
// Timestamps are not compared.
func (f *Frame) Equal(other *Frame) bool {
	if f.Width() != other.Width() || f.Height() != other.Height() {
		return false
	}
	w := f.Width()
	for y := 0; y < f.Height(); y++ {
		a := f.Image.Pix[f.Image.PixOffset(f.Image.Rect.Min.X, f.Image.Rect.Min.Y+y):][:4*w]
		b := other.Image.Pix[other.Image.PixOffset(other.Image.Rect.Min.X, other.Image.Rect.Min.Y+y):][:4*w]
		if string(a) != string(b) {
			return false
		}
	}
	return true
}

func (f *Frame) String() string {
	if f == nil || f.Image == nil {
		return "Frame(<nil>)"
	}
	return fmt.Sprintf("Frame(%s@%v)", f.Resolution(), f.Timestamp)
}

package watermark

import (
	"fmt"
	"image"
)

const (
	DefaultMarginDP     = 12
	DefaultSizeFraction = 0.20

	MinSizeFraction = 0.01
	MaxSizeFraction = 1.0
)

// Spec describes how the overlay is composited onto every frame.
//
// A nil Overlay disables compositing regardless of whether the watermark
// effect is enabled.
type Spec struct {
	Overlay      image.Image
	Location     Location
	MarginPx     float64
	SizeFraction float64
}

func (s Spec) String() string {
	var overlaySize string
	if s.Overlay == nil {
		overlaySize = "<none>"
	} else {
		b := s.Overlay.Bounds()
		overlaySize = fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
	}
	return fmt.Sprintf(
		"Watermark(%s; %s; margin:%.1fpx; size:%.2f)",
		overlaySize, s.Location, s.MarginPx, s.SizeFraction,
	)
}

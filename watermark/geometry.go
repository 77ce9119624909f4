package watermark

import (
	"image"

	"golang.org/x/exp/constraints"
)

func clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampSizeFraction brings the fraction into [MinSizeFraction, MaxSizeFraction].
// NaN is treated as the minimum.
func ClampSizeFraction(f float64) float64 {
	if f != f {
		return MinSizeFraction
	}
	return clamp(f, MinSizeFraction, MaxSizeFraction)
}

// FitSize returns the size the overlay gets scaled to: the largest size of
// the same aspect ratio that fits into the target box of the frame.
func FitSize(
	frameSize image.Point,
	overlaySize image.Point,
	sizeFraction float64,
) image.Point {
	sizeFraction = ClampSizeFraction(sizeFraction)
	targetW := max(1, int(float64(frameSize.X)*sizeFraction))
	targetH := max(1, int(float64(frameSize.Y)*sizeFraction))

	scale := min(
		float64(targetW)/float64(overlaySize.X),
		float64(targetH)/float64(overlaySize.Y),
	)
	return image.Point{
		X: max(1, int(float64(overlaySize.X)*scale)),
		Y: max(1, int(float64(overlaySize.Y)*scale)),
	}
}

// Anchor returns the top-left corner of an overlay of the given size at the
// given location, before clamping.
//
// For LocationCenter the margin is a vertical drop below the true center
// rather than an inset from an edge.
func Anchor(
	frameSize image.Point,
	scaledSize image.Point,
	location Location,
	marginPx float64,
) (float64, float64) {
	fw, fh := float64(frameSize.X), float64(frameSize.Y)
	w, h := float64(scaledSize.X), float64(scaledSize.Y)
	m := marginPx
	switch location {
	case LocationTopLeft:
		return m, m
	case LocationTopRight:
		return fw - w - m, m
	case LocationCenter:
		return (fw - w) / 2, (fh-h)/2 + m
	case LocationBottomRight:
		return fw - w - m, fh - h - m
	default:
		return m, fh - h - m
	}
}

// Placement computes the rectangle (in frame coordinates) the overlay is
// drawn into. The rectangle always lies within the frame.
func Placement(
	frameSize image.Point,
	overlaySize image.Point,
	location Location,
	marginPx float64,
	sizeFraction float64,
) image.Rectangle {
	scaled := FitSize(frameSize, overlaySize, sizeFraction)
	x, y := Anchor(frameSize, scaled, location, marginPx)

	maxX := max(0, frameSize.X-scaled.X)
	maxY := max(0, frameSize.Y-scaled.Y)
	if x != x {
		x = 0
	}
	if y != y {
		y = 0
	}
	px := int(clamp(x, 0, float64(maxX)))
	py := int(clamp(y, 0, float64(maxY)))
	return image.Rect(px, py, px+scaled.X, py+scaled.Y)
}

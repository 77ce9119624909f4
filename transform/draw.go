package transform

import (
	"image"
	"image/color"
	"image/draw"

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

func abs[T constraints.Signed | constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

func clampPoint(img *image.RGBA, p image.Point) image.Point {
	return image.Point{
		X: clamp(p.X, img.Rect.Min.X, img.Rect.Max.X-1),
		Y: clamp(p.Y, img.Rect.Min.Y, img.Rect.Max.Y-1),
	}
}

// fillRect fills the part of r that lies within the image. Translucent
// colors are blended over the existing pixels.
func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Canon().Intersect(img.Rect)
	if r.Empty() {
		return
	}
	op := draw.Over
	if c.A == 0xff {
		op = draw.Src
	}
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, op)
}

func strokeRect(img *image.RGBA, r image.Rectangle, width int, c color.RGBA) {
	r = r.Canon()
	width = max(1, width)
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), c)
	fillRect(img, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), c)
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), c)
	fillRect(img, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func fillCircle(img *image.RGBA, center image.Point, radius int, c color.RGBA) {
	radius = max(0, radius)
	bounds := image.Rect(
		center.X-radius, center.Y-radius,
		center.X+radius+1, center.Y+radius+1,
	).Intersect(img.Rect)
	r2 := radius * radius
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		dy := y - center.Y
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dx := x - center.X
			if dx*dx+dy*dy <= r2 {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

// strokeEllipse draws the outline of the ellipse inscribed into r.
func strokeEllipse(img *image.RGBA, r image.Rectangle, width int, c color.RGBA) {
	r = r.Canon()
	if r.Empty() {
		return
	}
	width = max(1, width)
	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	a := float64(r.Dx()) / 2
	b := float64(r.Dy()) / 2
	half := float64(width) / 2
	outerA, outerB := a+half, b+half
	innerA, innerB := a-half, b-half

	bounds := r.Inset(-width).Intersect(img.Rect)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		py := float64(y) + 0.5 - cy
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := float64(x) + 0.5 - cx
			outer := (px*px)/(outerA*outerA) + (py*py)/(outerB*outerB)
			if outer > 1 {
				continue
			}
			if innerA > 0 && innerB > 0 {
				inner := (px*px)/(innerA*innerA) + (py*py)/(innerB*innerB)
				if inner < 1 {
					continue
				}
			}
			img.SetRGBA(x, y, c)
		}
	}
}

// drawLine draws a segment of the given thickness (Bresenham with round
// brushes).
func drawLine(img *image.RGBA, p0, p1 image.Point, thickness int, c color.RGBA) {
	radius := max(0, thickness/2)
	dx := abs(p1.X - p0.X)
	dy := -abs(p1.Y - p0.Y)
	sx, sy := 1, 1
	if p0.X > p1.X {
		sx = -1
	}
	if p0.Y > p1.Y {
		sy = -1
	}
	e := dx + dy
	x, y := p0.X, p0.Y
	for {
		fillCircle(img, image.Pt(x, y), radius, c)
		if x == p1.X && y == p1.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// colorForText derives a stable, saturated color from a string.
func colorForText(s string) color.RGBA {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	c := color.RGBA{
		R: uint8(h),
		G: uint8(h >> 8),
		B: uint8(h >> 16),
		A: 0xff,
	}
	// keep at least one channel bright enough to be visible on dark frames
	switch h % 3 {
	case 0:
		c.R |= 0x80
	case 1:
		c.G |= 0x80
	default:
		c.B |= 0x80
	}
	return c
}

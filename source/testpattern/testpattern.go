// Package testpattern is a synthetic capture source: it produces frames at a
// fixed rate, either SMPTE-like color bars or a still picture, with a moving
// marker so that consecutive frames differ.
package testpattern

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/disintegration/imaging"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/logger"
	"go.uber.org/atomic"
)

// OnFrameFunc receives the ownership of the frame. It must not block.
type OnFrameFunc func(ctx context.Context, f *frame.Frame) bool

var barColors = []color.RGBA{
	{R: 192, G: 192, B: 192, A: 255},
	{R: 192, G: 192, B: 0, A: 255},
	{R: 0, G: 192, B: 192, A: 255},
	{R: 0, G: 192, B: 0, A: 255},
	{R: 192, G: 0, B: 192, A: 255},
	{R: 192, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 192, A: 255},
}

type Source struct {
	Resolution frame.Resolution
	FPS        float64

	background *image.RGBA
	produced   atomic.Uint64
	accepted   atomic.Uint64
}

func New(res frame.Resolution, fps float64) (*Source, error) {
	if res.Width == 0 || res.Height == 0 {
		return nil, fmt.Errorf("invalid resolution %s", res)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("invalid FPS %v", fps)
	}
	return &Source{
		Resolution: res,
		FPS:        fps,
		background: colorBars(int(res.Width), int(res.Height)),
	}, nil
}

// NewFromImage uses the picture at path (fit and cropped to the resolution)
// as the background.
func NewFromImage(path string, res frame.Resolution, fps float64) (*Source, error) {
	s, err := New(res, fps)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	fitted := imaging.Fill(img, int(res.Width), int(res.Height), imaging.Center, imaging.Lanczos)
	bg := image.NewRGBA(image.Rect(0, 0, int(res.Width), int(res.Height)))
	draw.Draw(bg, bg.Bounds(), fitted, fitted.Bounds().Min, draw.Src)
	s.background = bg
	return s, nil
}

func (s *Source) String() string {
	return fmt.Sprintf("TestPattern(%s@%vfps)", s.Resolution, s.FPS)
}

func (s *Source) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / s.FPS)
}

// Frame renders the n-th frame of the sequence.
func (s *Source) Frame(n uint64) *frame.Frame {
	w, h := int(s.Resolution.Width), int(s.Resolution.Height)
	f := frame.New(w, h, time.Duration(n)*s.FrameInterval())
	copy(f.Image.Pix, s.background.Pix)

	side := max(4, h/8)
	travel := max(1, w-side)
	x := int(n*8) % (2 * travel)
	if x >= travel {
		x = 2*travel - x
	}
	y := (h - side) / 2
	draw.Draw(f.Image, image.Rect(x, y, x+side, y+side), image.White, image.Point{}, draw.Src)
	return f
}

// Run produces frames until the context is cancelled.
func (s *Source) Run(
	ctx context.Context,
	onFrame OnFrameFunc,
) (_err error) {
	logger.Debugf(ctx, "Run: %s", s)
	defer func() { logger.Debugf(ctx, "/Run: %s: %v", s, _err) }()

	ticker := time.NewTicker(s.FrameInterval())
	defer ticker.Stop()

	var n uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		f := s.Frame(n)
		n++
		s.produced.Inc()
		if onFrame(ctx, f) {
			s.accepted.Inc()
		}
	}
}

type Stats struct {
	Produced uint64
	Accepted uint64
}

func (s *Source) GetStats() Stats {
	return Stats{
		Produced: s.produced.Load(),
		Accepted: s.accepted.Load(),
	}
}

func colorBars(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		c := barColors[x*len(barColors)/w]
		for y := 0; y < h; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

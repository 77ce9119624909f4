package transform

import (
	"context"
	"fmt"
	"image/color"

	"github.com/xaionaro-go/fxpipeline/detector"
	"github.com/xaionaro-go/fxpipeline/frame"
)

const DefaultFaceOutlineStrokeWidth = 4

// FaceOutline draws an oval over every detected face.
type FaceOutline struct {
	Detector    *detector.Adapter[[]detector.Face]
	Color       color.RGBA
	StrokeWidth int
}

var _ Abstract = (*FaceOutline)(nil)

func NewFaceOutline(d *detector.Adapter[[]detector.Face]) *FaceOutline {
	return &FaceOutline{
		Detector:    d,
		Color:       color.RGBA{R: 0xff, A: 0xff},
		StrokeWidth: DefaultFaceOutlineStrokeWidth,
	}
}

func (t *FaceOutline) Kind() Kind {
	return KindFaceOutline
}

func (t *FaceOutline) String() string {
	return fmt.Sprintf("FaceOutline(%s)", t.Detector)
}

func (t *FaceOutline) Apply(ctx context.Context, in *frame.Frame) *frame.Frame {
	return guard(ctx, t, in, func(ctx context.Context) (*frame.Frame, error) {
		faces, err := t.Detector.Detect(ctx, in.Image)
		if err != nil {
			return nil, fmt.Errorf("unable to detect faces: %w", err)
		}
		if len(faces) == 0 {
			return in, nil
		}
		out := in.Clone()
		for _, face := range faces {
			strokeEllipse(out.Image, face.Box, t.StrokeWidth, t.Color)
		}
		return out, nil
	})
}

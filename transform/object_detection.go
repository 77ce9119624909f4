package transform

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/xaionaro-go/fxpipeline/detector"
	"github.com/xaionaro-go/fxpipeline/frame"
)

// ObjectDetection draws a box around every detected object; labeled
// objects get a bar on top of the box colored after the best label.
type ObjectDetection struct {
	Detector    *detector.Adapter[[]detector.Object]
	Color       color.RGBA
	StrokeWidth int
}

var _ Abstract = (*ObjectDetection)(nil)

func NewObjectDetection(d *detector.Adapter[[]detector.Object]) *ObjectDetection {
	return &ObjectDetection{
		Detector:    d,
		Color:       color.RGBA{R: 0xff, G: 0xa0, A: 0xff},
		StrokeWidth: 2,
	}
}

func (t *ObjectDetection) Kind() Kind {
	return KindObjectDetection
}

func (t *ObjectDetection) String() string {
	return fmt.Sprintf("ObjectDetection(%s)", t.Detector)
}

func (t *ObjectDetection) Apply(ctx context.Context, in *frame.Frame) *frame.Frame {
	return guard(ctx, t, in, func(ctx context.Context) (*frame.Frame, error) {
		objects, err := t.Detector.Detect(ctx, in.Image)
		if err != nil {
			return nil, fmt.Errorf("unable to detect objects: %w", err)
		}
		if len(objects) == 0 {
			return in, nil
		}
		out := in.Clone()
		barHeight := max(4, out.Height()/40)
		for _, obj := range objects {
			box := obj.Box.Canon().Intersect(out.Image.Rect)
			if box.Empty() {
				continue
			}
			strokeRect(out.Image, box, t.StrokeWidth, t.Color)
			label, ok := bestLabel(obj.Labels)
			if !ok {
				continue
			}
			barWidth := max(1, int(float32(box.Dx())*clamp(label.Confidence, 0, 1)))
			top := max(out.Image.Rect.Min.Y, box.Min.Y-barHeight)
			fillRect(out.Image, image.Rect(box.Min.X, top, box.Min.X+barWidth, top+barHeight), colorForText(label.Text))
		}
		return out, nil
	})
}

func bestLabel(labels []detector.Label) (detector.Label, bool) {
	if len(labels) == 0 {
		return detector.Label{}, false
	}
	best := labels[0]
	for _, l := range labels[1:] {
		if l.Confidence > best.Confidence {
			best = l
		}
	}
	return best, true
}

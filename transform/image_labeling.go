package transform

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/xaionaro-go/fxpipeline/detector"
	"github.com/xaionaro-go/fxpipeline/frame"
)

// ImageLabeling stacks a bar per scene label in the top-left corner; the
// length of a bar is proportional to the confidence of the label.
type ImageLabeling struct {
	Detector  *detector.Adapter[[]detector.Label]
	MaxLabels int
}

var _ Abstract = (*ImageLabeling)(nil)

func NewImageLabeling(d *detector.Adapter[[]detector.Label]) *ImageLabeling {
	return &ImageLabeling{
		Detector:  d,
		MaxLabels: 5,
	}
}

func (t *ImageLabeling) Kind() Kind {
	return KindImageLabeling
}

func (t *ImageLabeling) String() string {
	return fmt.Sprintf("ImageLabeling(%s)", t.Detector)
}

func (t *ImageLabeling) Apply(ctx context.Context, in *frame.Frame) *frame.Frame {
	return guard(ctx, t, in, func(ctx context.Context) (*frame.Frame, error) {
		labels, err := t.Detector.Detect(ctx, in.Image)
		if err != nil {
			return nil, fmt.Errorf("unable to label the image: %w", err)
		}
		if len(labels) == 0 {
			return in, nil
		}
		if t.MaxLabels > 0 && len(labels) > t.MaxLabels {
			labels = labels[:t.MaxLabels]
		}
		out := in.Clone()
		w, h := out.Width(), out.Height()
		margin := max(2, w/100)
		barHeight := max(3, h/60)
		maxBarWidth := max(1, w/4)
		backdrop := color.RGBA{A: 0x80}
		fillRect(out.Image, image.Rect(0, 0, 2*margin+maxBarWidth, margin+len(labels)*(barHeight+margin)), backdrop)
		for i, l := range labels {
			y := margin + i*(barHeight+margin)
			barWidth := max(1, int(float32(maxBarWidth)*clamp(l.Confidence, 0, 1)))
			fillRect(out.Image, image.Rect(margin, y, margin+barWidth, y+barHeight), colorForText(l.Text))
		}
		return out, nil
	})
}

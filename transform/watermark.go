package transform

import (
	"context"

	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/watermark"
)

// Watermark composites a fixed overlay onto frames.
type Watermark struct {
	Compositor *watermark.Compositor
	Spec       watermark.Spec
}

var _ Abstract = (*Watermark)(nil)

func NewWatermark(compositor *watermark.Compositor, spec watermark.Spec) *Watermark {
	if compositor == nil {
		compositor = watermark.NewCompositor()
	}
	return &Watermark{
		Compositor: compositor,
		Spec:       spec,
	}
}

func (t *Watermark) Kind() Kind {
	return KindWatermark
}

func (t *Watermark) String() string {
	return t.Spec.String()
}

func (t *Watermark) Apply(ctx context.Context, in *frame.Frame) *frame.Frame {
	return guard(ctx, t, in, func(ctx context.Context) (*frame.Frame, error) {
		return t.Compositor.Composite(ctx, in, t.Spec), nil
	})
}

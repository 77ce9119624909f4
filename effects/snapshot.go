package effects

import (
	"fmt"

	"github.com/xaionaro-go/fxpipeline/config"
	"github.com/xaionaro-go/fxpipeline/transform"
	"github.com/xaionaro-go/fxpipeline/watermark"
)

// Snapshot is the immutable configuration a frame is processed with.
type Snapshot struct {
	Effects   config.Effects
	Watermark watermark.Spec

	watermark *transform.Watermark
}

func NewSnapshot(
	effects config.Effects,
	spec watermark.Spec,
	compositor *watermark.Compositor,
) *Snapshot {
	return &Snapshot{
		Effects:   effects,
		Watermark: spec,
		watermark: transform.NewWatermark(compositor, spec),
	}
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("Snapshot(%s; %s)", s.Effects, s.Watermark)
}

package transform

import (
	"context"
	"fmt"
	"image/color"

	"github.com/xaionaro-go/fxpipeline/detector"
	"github.com/xaionaro-go/fxpipeline/frame"
)

// FaceMesh draws a dot per landmark of every detected face.
type FaceMesh struct {
	Detector *detector.Adapter[[]detector.FaceMesh]
	Color    color.RGBA
}

var _ Abstract = (*FaceMesh)(nil)

func NewFaceMesh(d *detector.Adapter[[]detector.FaceMesh]) *FaceMesh {
	return &FaceMesh{
		Detector: d,
		Color:    color.RGBA{G: 0xff, A: 0xff},
	}
}

func (t *FaceMesh) Kind() Kind {
	return KindFaceMesh
}

func (t *FaceMesh) String() string {
	return fmt.Sprintf("FaceMesh(%s)", t.Detector)
}

// MeshDotRadius scales the dots with the resolution.
func MeshDotRadius(frameWidth int) int {
	return max(1, frameWidth/360)
}

func (t *FaceMesh) Apply(ctx context.Context, in *frame.Frame) *frame.Frame {
	return guard(ctx, t, in, func(ctx context.Context) (*frame.Frame, error) {
		meshes, err := t.Detector.Detect(ctx, in.Image)
		if err != nil {
			return nil, fmt.Errorf("unable to detect face meshes: %w", err)
		}
		if len(meshes) == 0 {
			return in, nil
		}
		out := in.Clone()
		radius := MeshDotRadius(out.Width())
		for _, mesh := range meshes {
			for _, p := range mesh.Points {
				fillCircle(out.Image, p, radius, t.Color)
			}
		}
		return out, nil
	})
}

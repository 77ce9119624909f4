// Package effects applies the enabled transforms to frames in the fixed
// order: face outline, background blur, face mesh, pose detection, object
// detection, image labeling and, last, the watermark.
package effects

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ng/xatomic"
	"github.com/xaionaro-go/fxpipeline/config"
	"github.com/xaionaro-go/fxpipeline/detector"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/fxpipeline/transform"
	"github.com/xaionaro-go/fxpipeline/watermark"
)

// Orchestrator does not apply any policy to the flags it is given: every
// enabled transform that has a slot is applied.
type Orchestrator struct {
	Observer   Observer
	Compositor *watermark.Compositor

	slots    [transform.EndOfKind]transform.Abstract
	snapshot *Snapshot
}

var _ interface {
	Process(context.Context, *frame.Frame) *frame.Frame
} = (*Orchestrator)(nil)

// New creates an orchestrator with a transform per detector available in
// resources.
func New(
	resources *detector.Resources,
	effects config.Effects,
	spec watermark.Spec,
) *Orchestrator {
	o := &Orchestrator{
		Observer:   nopObserver{},
		Compositor: watermark.NewCompositor(),
	}
	if resources != nil {
		if resources.Faces != nil {
			o.SetTransform(transform.NewFaceOutline(resources.Faces))
		}
		if resources.Segmentation != nil {
			o.SetTransform(transform.NewBackgroundBlur(resources.Segmentation))
		}
		if resources.FaceMeshes != nil {
			o.SetTransform(transform.NewFaceMesh(resources.FaceMeshes))
		}
		if resources.Poses != nil {
			o.SetTransform(transform.NewPoseDetection(resources.Poses))
		}
		if resources.Objects != nil {
			o.SetTransform(transform.NewObjectDetection(resources.Objects))
		}
		if resources.Labels != nil {
			o.SetTransform(transform.NewImageLabeling(resources.Labels))
		}
	}
	o.snapshot = NewSnapshot(effects, spec, o.Compositor)
	return o
}

// SetTransform puts the transform into the slot of its kind. The watermark
// slot is not settable: the watermark comes with the snapshot.
//
// It is meant to be called before the processing starts.
func (o *Orchestrator) SetTransform(t transform.Abstract) {
	kind := t.Kind()
	if kind <= transform.KindUndefined || kind >= transform.EndOfKind || kind == transform.KindWatermark {
		panic(fmt.Errorf("invalid transform kind %s", kind))
	}
	o.slots[kind] = t
}

func (o *Orchestrator) Transform(kind transform.Kind) transform.Abstract {
	if kind <= transform.KindUndefined || kind >= transform.EndOfKind {
		return nil
	}
	return o.slots[kind]
}

func (o *Orchestrator) String() string {
	return fmt.Sprintf("Orchestrator(%s)", o.Snapshot())
}

// Snapshot returns the configuration the next frame will be processed with.
func (o *Orchestrator) Snapshot() *Snapshot {
	return xatomic.LoadPointer(&o.snapshot)
}

// Reload atomically replaces the configuration. Frames being processed
// keep the snapshot they started with.
func (o *Orchestrator) Reload(
	ctx context.Context,
	effects config.Effects,
	spec watermark.Spec,
) {
	s := NewSnapshot(effects, spec, o.Compositor)
	old := xatomic.SwapPointer(&o.snapshot, s)
	logger.Debugf(ctx, "reloaded: %s -> %s", old, s)
}

// Process takes the snapshot once and processes the frame with it.
func (o *Orchestrator) Process(ctx context.Context, in *frame.Frame) *frame.Frame {
	return o.ProcessWith(ctx, in, o.Snapshot())
}

// ProcessWith applies the transforms enabled in the snapshot, each one to
// the output of the previous one, and returns the result. It never fails:
// a transform that cannot be applied is skipped.
//
// Intermediate frames are released; the input frame never is, it is either
// returned as is or left to the caller.
func (o *Orchestrator) ProcessWith(
	ctx context.Context,
	in *frame.Frame,
	snapshot *Snapshot,
) (_ret *frame.Frame) {
	logger.Tracef(ctx, "ProcessWith: %v", in)
	defer func() { logger.Tracef(ctx, "/ProcessWith: %v", _ret) }()
	if snapshot == nil {
		return in
	}

	observer := o.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	cur := in
	for _, kind := range transform.Kinds() {
		if !snapshot.Effects.IsEnabled(kind) {
			continue
		}
		t := o.slots[kind]
		if kind == transform.KindWatermark {
			t = snapshot.watermark
		}
		if t == nil {
			continue
		}

		startedAt := time.Now()
		out := t.Apply(ctx, cur)
		if out == nil {
			logger.Errorf(ctx, "%s returned nil, ignoring", t)
			out = cur
		}
		observer.ObserveTransform(kind, time.Since(startedAt), out == cur)

		if out != cur && cur != in {
			cur.Release()
		}
		cur = out
	}
	return cur
}

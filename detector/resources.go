package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/xsync"
)

// Resources owns one service handle per detector kind. It is built once
// when the pipeline starts and closed once when it stops.
//
// Any of the services may be nil, which means the respective effects
// always pass frames through.
type Resources struct {
	Faces        *Adapter[[]Face]
	FaceMeshes   *Adapter[[]FaceMesh]
	Poses        *Adapter[[]Pose]
	Labels       *Adapter[[]Label]
	Objects      *Adapter[[]Object]
	Segmentation *Adapter[*SegmentationMask]

	locker   xsync.Mutex
	isClosed bool
}

type ResourcesConfig struct {
	Faces        Service[[]Face]
	FaceMeshes   Service[[]FaceMesh]
	Poses        Service[[]Pose]
	Labels       Service[[]Label]
	Objects      Service[[]Object]
	Segmentation Service[*SegmentationMask]

	Timeout time.Duration
}

func NewResources(cfg ResourcesConfig) *Resources {
	r := &Resources{}
	if cfg.Faces != nil {
		r.Faces = NewAdapter(cfg.Faces).SetTimeout(cfg.Timeout)
	}
	if cfg.FaceMeshes != nil {
		r.FaceMeshes = NewAdapter(cfg.FaceMeshes).SetTimeout(cfg.Timeout)
	}
	if cfg.Poses != nil {
		r.Poses = NewAdapter(cfg.Poses).SetTimeout(cfg.Timeout)
	}
	if cfg.Labels != nil {
		r.Labels = NewAdapter(cfg.Labels).SetTimeout(cfg.Timeout)
	}
	if cfg.Objects != nil {
		r.Objects = NewAdapter(cfg.Objects).SetTimeout(cfg.Timeout)
	}
	if cfg.Segmentation != nil {
		r.Segmentation = NewAdapter(cfg.Segmentation).SetTimeout(cfg.Timeout)
	}
	return r
}

func (r *Resources) String() string {
	return fmt.Sprintf(
		"Resources(faces:%s, meshes:%s, poses:%s, labels:%s, objects:%s, segmentation:%s)",
		r.Faces, r.FaceMeshes, r.Poses, r.Labels, r.Objects, r.Segmentation,
	)
}

// SetTimeout changes the timeout of all the adapters at runtime.
func (r *Resources) SetTimeout(timeout time.Duration) {
	if r.Faces != nil {
		r.Faces.SetTimeout(timeout)
	}
	if r.FaceMeshes != nil {
		r.FaceMeshes.SetTimeout(timeout)
	}
	if r.Poses != nil {
		r.Poses.SetTimeout(timeout)
	}
	if r.Labels != nil {
		r.Labels.SetTimeout(timeout)
	}
	if r.Objects != nil {
		r.Objects.SetTimeout(timeout)
	}
	if r.Segmentation != nil {
		r.Segmentation.SetTimeout(timeout)
	}
}

type closer interface {
	Close(context.Context) error
}

func (r *Resources) services() []closer {
	var result []closer
	if r.Faces != nil {
		result = append(result, r.Faces.Service)
	}
	if r.FaceMeshes != nil {
		result = append(result, r.FaceMeshes.Service)
	}
	if r.Poses != nil {
		result = append(result, r.Poses.Service)
	}
	if r.Labels != nil {
		result = append(result, r.Labels.Service)
	}
	if r.Objects != nil {
		result = append(result, r.Objects.Service)
	}
	if r.Segmentation != nil {
		result = append(result, r.Segmentation.Service)
	}
	return result
}

// Close closes every service handle. Calling it again is a no-op.
func (r *Resources) Close(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Close")
	defer func() { logger.Tracef(ctx, "/Close: %v", _err) }()
	return xsync.DoR1(ctx, &r.locker, func() error {
		if r.isClosed {
			return nil
		}
		r.isClosed = true
		var errs []error
		for _, svc := range r.services() {
			if err := svc.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("unable to close %v: %w", svc, err))
			}
		}
		return errors.Join(errs...)
	})
}

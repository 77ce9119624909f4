package detector

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/xaionaro-go/fxpipeline/logger"
	"go.uber.org/atomic"
)

// Adapter turns a callback-based Service into a cancellable call that
// resolves exactly once.
//
// The zero timeout means no timeout.
type Adapter[R any] struct {
	Service Service[R]
	Timeout atomic.Duration

	// Serialize makes the adapter wait for the previous submission to
	// resolve before submitting the next one. Use it for services that are
	// not safe for concurrent use.
	Serialize bool

	semaphore chan struct{}
	initOnce  sync.Once
}

func NewAdapter[R any](svc Service[R]) *Adapter[R] {
	return &Adapter[R]{
		Service: svc,
	}
}

func (a *Adapter[R]) String() string {
	if a == nil || a.Service == nil {
		return "Adapter(<nil>)"
	}
	return fmt.Sprintf("Adapter(%s)", a.Service)
}

func (a *Adapter[R]) SetTimeout(timeout time.Duration) *Adapter[R] {
	a.Timeout.Store(timeout)
	return a
}

func (a *Adapter[R]) SetSerialize(v bool) *Adapter[R] {
	a.Serialize = v
	return a
}

type resolution[R any] struct {
	Result R
	Error  error
}

// Detect submits the image and waits for the result.
//
// If the context is cancelled (or the timeout is reached) first, the
// context error is returned immediately and the late result is discarded.
// The service gets its own copy of the image, so the caller may reuse img
// as soon as Detect returns.
func (a *Adapter[R]) Detect(
	ctx context.Context,
	img *image.RGBA,
) (_ret R, _err error) {
	logger.Tracef(ctx, "Detect")
	defer func() { logger.Tracef(ctx, "/Detect: %v", _err) }()

	if a == nil || a.Service == nil {
		return _ret, ErrNoService
	}
	if img == nil {
		return _ret, fmt.Errorf("the image is nil")
	}
	if err := ctx.Err(); err != nil {
		return _ret, err
	}

	if timeout := a.Timeout.Load(); timeout > 0 {
		var cancelFn context.CancelFunc
		ctx, cancelFn = context.WithTimeout(ctx, timeout)
		defer cancelFn()
	}

	if a.Serialize {
		a.initOnce.Do(func() {
			a.semaphore = make(chan struct{}, 1)
		})
		select {
		case a.semaphore <- struct{}{}:
		case <-ctx.Done():
			return _ret, ctx.Err()
		}
	}

	resultCh := make(chan resolution[R], 1)
	var resolveOnce sync.Once
	a.Service.Submit(ctx, cloneRGBA(img), func(result R, err error) {
		resolved := false
		resolveOnce.Do(func() {
			resolved = true
			if a.Serialize {
				<-a.semaphore
			}
			resultCh <- resolution[R]{Result: result, Error: err}
		})
		if !resolved {
			logger.Warnf(ctx, "%s: %v", a.Service, ErrDuplicateResolution)
		}
	})

	select {
	case r := <-resultCh:
		if r.Error != nil {
			return _ret, fmt.Errorf("%s: %w", a.Service, r.Error)
		}
		return r.Result, nil
	case <-ctx.Done():
		return _ret, ctx.Err()
	}
}

func cloneRGBA(img *image.RGBA) *image.RGBA {
	b := img.Rect
	dup := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	w := 4 * b.Dx()
	for y := 0; y < b.Dy(); y++ {
		srcOff := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(dup.Pix[y*dup.Stride:y*dup.Stride+w], img.Pix[srcOff:srcOff+w])
	}
	return dup
}

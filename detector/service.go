package detector

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/observability"
)

// Service is an external detection capability with a callback-based API.
//
// Submit must eventually call the callback exactly once, from any
// goroutine. The image is owned by the service until the callback is
// called.
type Service[R any] interface {
	fmt.Stringer
	Submit(ctx context.Context, img *image.RGBA, callback func(R, error))
	Close(ctx context.Context) error
}

// DetectFunc is a synchronous detector implementation.
type DetectFunc[R any] func(ctx context.Context, img *image.RGBA) (R, error)

// FuncService turns a synchronous detector function into a Service: every
// submission is run on its own goroutine.
type FuncService[R any] struct {
	Name     string
	Func     DetectFunc[R]
	OnClose  func(ctx context.Context) error
	isClosed atomic.Bool
}

var _ Service[[]Face] = (*FuncService[[]Face])(nil)

func NewFuncService[R any](name string, fn DetectFunc[R]) *FuncService[R] {
	return &FuncService[R]{
		Name: name,
		Func: fn,
	}
}

func (s *FuncService[R]) String() string {
	return s.Name
}

func (s *FuncService[R]) Submit(
	ctx context.Context,
	img *image.RGBA,
	callback func(R, error),
) {
	if s.isClosed.Load() {
		var zero R
		callback(zero, ErrClosed)
		return
	}
	observability.Go(ctx, func(ctx context.Context) {
		var (
			result R
			err    error
		)
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf(ctx, "detector '%s' panicked: %v", s.Name, r)
				var zero R
				result, err = zero, ErrPanic{Value: r}
			}
			callback(result, err)
		}()
		result, err = s.Func(ctx, img)
	})
}

func (s *FuncService[R]) Close(ctx context.Context) error {
	if s.isClosed.Swap(true) {
		return nil
	}
	logger.Debugf(ctx, "closing detector '%s'", s.Name)
	if s.OnClose == nil {
		return nil
	}
	return s.OnClose(ctx)
}

func sprint(v any) string {
	return fmt.Sprint(v)
}

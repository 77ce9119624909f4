package transform

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/logger"
)

// guard runs the effect and falls back to the input frame on any failure.
func guard(
	ctx context.Context,
	t Abstract,
	in *frame.Frame,
	fn func(ctx context.Context) (*frame.Frame, error),
) (_ret *frame.Frame) {
	ctx = logger.WithField(ctx, "transform", t.Kind().String())
	logger.Tracef(ctx, "Apply")
	defer func() { logger.Tracef(ctx, "/Apply: %v", _ret) }()

	if err := in.Validate(); err != nil {
		logger.Debugf(ctx, "%s: passing through a malformed frame: %v", t, err)
		return in
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		errmon.ObserveRecoverCtx(ctx, r)
		logger.Errorf(ctx, "%s panicked: %v", t, r)
		_ret = in
	}()

	out, err := fn(ctx)
	if err != nil {
		logger.Debugf(ctx, "%s: passing the frame through: %v", t, err)
		if out != nil && out != in {
			out.Release()
		}
		return in
	}
	if out == nil {
		return in
	}
	if out.Bounds().Size() != in.Bounds().Size() {
		logger.Errorf(ctx, "%s: internal error: %v", t, fmt.Errorf("the output size %v does not match the input size %v", out.Bounds().Size(), in.Bounds().Size()))
		out.Release()
		return in
	}
	return out
}

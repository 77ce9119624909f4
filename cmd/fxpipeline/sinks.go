package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/scheduler"
)

// sinks forwards every frame to all of the sinks.
type sinks []scheduler.Sink

func (s sinks) SendFrame(ctx context.Context, f *frame.Frame) error {
	var errs []error
	for _, sink := range s {
		if err := sink.SendFrame(ctx, f); err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", sink, err))
		}
	}
	return errors.Join(errs...)
}

package scheduler

import (
	"context"

	"github.com/xaionaro-go/fxpipeline/frame"
)

// Processor turns a frame into the frame to forward. It must never return
// nil.
type Processor interface {
	Process(ctx context.Context, f *frame.Frame) *frame.Frame
}

type ProcessorFunc func(ctx context.Context, f *frame.Frame) *frame.Frame

func (fn ProcessorFunc) Process(ctx context.Context, f *frame.Frame) *frame.Frame {
	return fn(ctx, f)
}

// Sink is the outbound track. The frame is released right after SendFrame
// returns, so the sink must copy anything it wants to keep.
type Sink interface {
	SendFrame(ctx context.Context, f *frame.Frame) error
}

type SinkFunc func(ctx context.Context, f *frame.Frame) error

func (fn SinkFunc) SendFrame(ctx context.Context, f *frame.Frame) error {
	return fn(ctx, f)
}

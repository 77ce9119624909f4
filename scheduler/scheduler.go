// Package scheduler feeds captured frames through a Processor and forwards
// the results to a Sink in capture order, without ever blocking the capture
// source on the processing latency.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ng/container/heap"
	"github.com/go-ng/xsort"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/internal"
	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

type Scheduler struct {
	Config    Config
	Processor Processor
	Sink      Sink

	ctx      context.Context
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
	stats    stats

	admissionLocker xsync.Mutex
	nextSeq         uint64
	inFlight        int
	isClosed        bool

	isClosing       atomic.Bool
	deliveryLocker  xsync.Mutex
	nextDeliverySeq uint64
	pending         map[uint64]*frame.Frame
	pendingSeqs     xsort.OrderedAsc[uint64]
}

// New creates a scheduler. The context is used as the parent for all the
// processing, cancelling it is equivalent to closing the scheduler (except
// that the frames are not released).
func New(
	ctx context.Context,
	cfg Config,
	processor Processor,
	sink Sink,
) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if processor == nil {
		return nil, fmt.Errorf("processor is not set")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is not set")
	}
	ctx, cancelFn := context.WithCancel(ctx)
	return &Scheduler{
		Config:    cfg,
		Processor: processor,
		Sink:      sink,
		ctx:       ctx,
		cancelFn:  cancelFn,
		pending:   map[uint64]*frame.Frame{},
	}, nil
}

func (s *Scheduler) String() string {
	return fmt.Sprintf("Scheduler(%s)", s.Config.Policy)
}

// OnFrameCaptured hands a frame over to the scheduler, which takes the
// ownership of it. It returns false if the frame was dropped right away.
//
// It never waits for the processing.
func (s *Scheduler) OnFrameCaptured(
	ctx context.Context,
	f *frame.Frame,
) bool {
	s.stats.Captured.Inc()
	if f == nil {
		return false
	}

	seq, ok := xsync.DoR2(ctx, &s.admissionLocker, func() (uint64, bool) {
		if s.isClosed {
			s.stats.DroppedClosed.Inc()
			return 0, false
		}
		if s.inFlight >= s.Config.maxInFlight() {
			s.stats.DroppedBusy.Inc()
			return 0, false
		}
		seq := s.nextSeq
		s.nextSeq++
		s.inFlight++
		s.stats.InFlight.Inc()
		s.wg.Add(1)
		return seq, true
	})
	if !ok {
		logger.Tracef(ctx, "%v: %s", f, StateDropped)
		f.Release()
		return false
	}

	logger.Tracef(ctx, "%v: frame #%d is %s", f, seq, StateQueued)
	observability.Go(s.ctx, func(ctx context.Context) {
		defer s.wg.Done()
		s.process(logger.WithField(ctx, "frame_seq", seq), seq, f)
	})
	return true
}

func (s *Scheduler) process(
	ctx context.Context,
	seq uint64,
	in *frame.Frame,
) {
	logger.Tracef(ctx, "process: %s", StateProcessing)
	defer func() { logger.Tracef(ctx, "/process") }()
	defer func() {
		s.admissionLocker.Do(ctx, func() {
			s.inFlight--
			s.stats.InFlight.Dec()
		})
	}()

	out := s.Processor.Process(ctx, in)
	internal.Assert(ctx, out != nil, "the processor returned nil")
	if out != in {
		in.Release()
	}
	s.deliver(ctx, seq, out)
}

func (s *Scheduler) deliver(
	ctx context.Context,
	seq uint64,
	out *frame.Frame,
) {
	s.deliveryLocker.Do(ctx, func() {
		switch {
		case s.isClosing.Load():
			logger.Debugf(ctx, "closing, dropping frame #%d", seq)
			s.stats.DroppedClosed.Inc()
			out.Release()
			return
		case seq < s.nextDeliverySeq:
			logger.Debugf(ctx, "frame #%d is stale (expected #%d or later), dropping", seq, s.nextDeliverySeq)
			s.stats.DroppedStale.Inc()
			out.Release()
			return
		case seq == s.nextDeliverySeq:
			s.send(ctx, seq, out)
			s.flushPending(ctx)
			return
		}

		logger.Tracef(ctx, "frame #%d is early (expecting #%d), buffering", seq, s.nextDeliverySeq)
		s.pending[seq] = out
		heap.Push(&s.pendingSeqs, seq)
		s.stats.Buffered.Store(int64(len(s.pending)))
		if len(s.pending) <= s.Config.ReorderBufferSize {
			return
		}

		newestSeq := seq
		for len(s.pendingSeqs) > 0 {
			newestSeq = heap.Pop(&s.pendingSeqs)
		}
		logger.Debugf(ctx, "the reorder buffer overflowed (%d frames), dropping it and resyncing after frame #%d", len(s.pending), newestSeq)
		s.stats.DroppedOverflow.Add(uint64(len(s.pending)))
		s.releasePending()
		s.nextDeliverySeq = newestSeq + 1
	})
}

// send must be called with deliveryLocker held.
func (s *Scheduler) send(
	ctx context.Context,
	seq uint64,
	out *frame.Frame,
) {
	s.nextDeliverySeq = seq + 1
	defer out.Release()
	if s.isClosing.Load() {
		s.stats.DroppedClosed.Inc()
		return
	}
	if err := s.Sink.SendFrame(ctx, out); err != nil {
		logger.Errorf(ctx, "unable to send frame #%d: %v", seq, err)
		s.stats.SinkErrors.Inc()
		return
	}
	logger.Tracef(ctx, "frame #%d is %s", seq, StateForwarded)
	s.stats.Forwarded.Inc()
}

// flushPending must be called with deliveryLocker held.
func (s *Scheduler) flushPending(ctx context.Context) {
	for len(s.pendingSeqs) > 0 && s.pendingSeqs[0] == s.nextDeliverySeq {
		seq := heap.Pop(&s.pendingSeqs)
		out := s.pending[seq]
		delete(s.pending, seq)
		s.send(ctx, seq, out)
	}
	s.stats.Buffered.Store(int64(len(s.pending)))
}

// releasePending must be called with deliveryLocker held.
func (s *Scheduler) releasePending() {
	for seq, f := range s.pending {
		f.Release()
		delete(s.pending, seq)
	}
	s.pendingSeqs = s.pendingSeqs[:0]
	s.stats.Buffered.Store(0)
}

// GetStats returns the counters.
func (s *Scheduler) GetStats() Stats {
	return s.stats.snapshot()
}

// Close stops admitting frames, cancels the processing in flight, waits
// for the workers and releases every frame that was not forwarded. No frame
// reaches the sink after Close was called.
func (s *Scheduler) Close(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Close")
	defer func() { logger.Tracef(ctx, "/Close: %v", _err) }()

	alreadyClosed := xsync.DoR1(ctx, &s.admissionLocker, func() bool {
		if s.isClosed {
			return true
		}
		s.isClosed = true
		return false
	})
	if alreadyClosed {
		return nil
	}

	s.isClosing.Store(true)
	s.cancelFn()
	s.wg.Wait()

	s.deliveryLocker.Do(ctx, func() {
		s.stats.DroppedClosed.Add(uint64(len(s.pending)))
		s.releasePending()
	})
	return nil
}

package scheduler

import (
	"fmt"

	"go.uber.org/atomic"
)

type Stats struct {
	Captured        uint64
	Forwarded       uint64
	DroppedBusy     uint64
	DroppedOverflow uint64
	DroppedStale    uint64
	DroppedClosed   uint64
	SinkErrors      uint64
	InFlight        int64
	Buffered        int64
}

func (s Stats) Dropped() uint64 {
	return s.DroppedBusy + s.DroppedOverflow + s.DroppedStale + s.DroppedClosed
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"captured:%d forwarded:%d dropped:%d (busy:%d overflow:%d stale:%d closed:%d) sink_errors:%d in_flight:%d buffered:%d",
		s.Captured, s.Forwarded, s.Dropped(),
		s.DroppedBusy, s.DroppedOverflow, s.DroppedStale, s.DroppedClosed,
		s.SinkErrors, s.InFlight, s.Buffered,
	)
}

type stats struct {
	Captured        atomic.Uint64
	Forwarded       atomic.Uint64
	DroppedBusy     atomic.Uint64
	DroppedOverflow atomic.Uint64
	DroppedStale    atomic.Uint64
	DroppedClosed   atomic.Uint64
	SinkErrors      atomic.Uint64
	InFlight        atomic.Int64
	Buffered        atomic.Int64
}

func (s *stats) snapshot() Stats {
	return Stats{
		Captured:        s.Captured.Load(),
		Forwarded:       s.Forwarded.Load(),
		DroppedBusy:     s.DroppedBusy.Load(),
		DroppedOverflow: s.DroppedOverflow.Load(),
		DroppedStale:    s.DroppedStale.Load(),
		DroppedClosed:   s.DroppedClosed.Load(),
		SinkErrors:      s.SinkErrors.Load(),
		InFlight:        s.InFlight.Load(),
		Buffered:        s.Buffered.Load(),
	}
}

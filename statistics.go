package fxpipeline

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/xaionaro-go/fxpipeline/scheduler"
	"go.uber.org/atomic"
)

type Statistics struct {
	Scheduler    scheduler.Stats
	Reloads      uint64
	ReloadErrors uint64

	// ProcessingLatency is the smoothed time the effects take per frame.
	ProcessingLatency time.Duration
}

func (s Statistics) String() string {
	return fmt.Sprintf(
		"captured: %s, forwarded: %s, dropped: %s (busy: %s, overflow: %s, stale: %s, closed: %s), sink errors: %s, latency: %v, reloads: %s (failed: %s)",
		humanize.Comma(int64(s.Scheduler.Captured)),
		humanize.Comma(int64(s.Scheduler.Forwarded)),
		humanize.Comma(int64(s.Scheduler.Dropped())),
		humanize.Comma(int64(s.Scheduler.DroppedBusy)),
		humanize.Comma(int64(s.Scheduler.DroppedOverflow)),
		humanize.Comma(int64(s.Scheduler.DroppedStale)),
		humanize.Comma(int64(s.Scheduler.DroppedClosed)),
		humanize.Comma(int64(s.Scheduler.SinkErrors)),
		s.ProcessingLatency.Round(time.Microsecond),
		humanize.Comma(int64(s.Reloads)),
		humanize.Comma(int64(s.ReloadErrors)),
	)
}

type statistics struct {
	Reloads      atomic.Uint64
	ReloadErrors atomic.Uint64
}

func (s *statistics) observeReload(err error) {
	s.Reloads.Inc()
	if err != nil {
		s.ReloadErrors.Inc()
	}
}

func (s *statistics) convert(schedulerStats scheduler.Stats) Statistics {
	return Statistics{
		Scheduler:    schedulerStats,
		Reloads:      s.Reloads.Load(),
		ReloadErrors: s.ReloadErrors.Load(),
	}
}

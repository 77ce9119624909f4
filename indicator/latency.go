// Package indicator smooths noisy measurements, such as the per-frame
// processing latency, into a value suitable for displaying.
package indicator

import (
	"context"
	"time"

	indicators "github.com/lmpizarro/go_ehlers_indicators"
	"github.com/xaionaro-go/xsync"
)

const (
	DefaultWindow    = 32
	DefaultFastLimit = 0.5
	DefaultSlowLimit = 0.05
)

// Latency is a MESA adaptive moving average over the last Window samples.
// Until the window is filled the plain mean of the samples is reported.
type Latency struct {
	FastLimit float64
	SlowLimit float64

	locker  xsync.Mutex
	samples []float64
	ordered []float64
	next    int
	count   int
	current time.Duration
}

func NewLatency(window int) *Latency {
	if window < 2 {
		window = 2
	}
	return &Latency{
		FastLimit: DefaultFastLimit,
		SlowLimit: DefaultSlowLimit,
		samples:   make([]float64, window),
		ordered:   make([]float64, window),
	}
}

// Observe adds a sample and returns the updated average.
func (l *Latency) Observe(ctx context.Context, d time.Duration) time.Duration {
	return xsync.DoR1(ctx, &l.locker, func() time.Duration {
		l.samples[l.next] = float64(d)
		l.next = (l.next + 1) % len(l.samples)
		if l.count < len(l.samples) {
			l.count++
		}

		if l.count < len(l.samples) {
			var sum float64
			for _, v := range l.samples[:l.count] {
				sum += v
			}
			l.current = time.Duration(sum / float64(l.count))
			return l.current
		}

		// oldest first
		n := copy(l.ordered, l.samples[l.next:])
		copy(l.ordered[n:], l.samples[:l.next])
		result := indicators.MAMA(l.ordered, l.FastLimit, l.SlowLimit)
		l.current = time.Duration(result[len(result)-1])
		return l.current
	})
}

// Value returns the last computed average, or zero if nothing was observed.
func (l *Latency) Value(ctx context.Context) time.Duration {
	return xsync.DoR1(ctx, &l.locker, func() time.Duration {
		return l.current
	})
}

// Warm tells if the window is filled.
func (l *Latency) Warm(ctx context.Context) bool {
	return xsync.DoR1(ctx, &l.locker, func() bool {
		return l.count >= len(l.samples)
	})
}

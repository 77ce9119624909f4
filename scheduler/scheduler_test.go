package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/logger"
)

func testCtx(t *testing.T) context.Context {
	ctx := logger.CtxWithLogrus(context.Background(), logger.LevelTrace)
	t.Cleanup(func() { belt.Flush(ctx) })
	return ctx
}

func newFrame(ts int) *frame.Frame {
	return frame.New(4, 4, time.Duration(ts)*time.Millisecond)
}

type recordingSink struct {
	ch chan time.Duration
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan time.Duration, 1000)}
}

func (s *recordingSink) SendFrame(ctx context.Context, f *frame.Frame) error {
	s.ch <- f.Timestamp
	return nil
}

func (s *recordingSink) next(t *testing.T) time.Duration {
	select {
	case ts := <-s.ch:
		return ts
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for a frame at the sink")
		return 0
	}
}

func (s *recordingSink) requireNothing(t *testing.T) {
	select {
	case ts := <-s.ch:
		t.Fatalf("unexpected frame %v at the sink", ts)
	case <-time.After(20 * time.Millisecond):
	}
}

// gatedProcessor blocks the processing of every frame until the test
// opens the gate of its timestamp.
type gatedProcessor struct {
	locker  sync.Mutex
	gates   map[time.Duration]chan struct{}
	started chan time.Duration
}

func newGatedProcessor() *gatedProcessor {
	return &gatedProcessor{
		gates:   map[time.Duration]chan struct{}{},
		started: make(chan time.Duration, 100),
	}
}

func (p *gatedProcessor) gate(ts time.Duration) chan struct{} {
	p.locker.Lock()
	defer p.locker.Unlock()
	g, ok := p.gates[ts]
	if !ok {
		g = make(chan struct{})
		p.gates[ts] = g
	}
	return g
}

func (p *gatedProcessor) open(ts int) {
	close(p.gate(time.Duration(ts) * time.Millisecond))
}

func (p *gatedProcessor) Process(ctx context.Context, f *frame.Frame) *frame.Frame {
	g := p.gate(f.Timestamp)
	p.started <- f.Timestamp
	select {
	case <-g:
	case <-ctx.Done():
	}
	return f
}

func (p *gatedProcessor) waitStarted(t *testing.T, count int) {
	for i := 0; i < count; i++ {
		select {
		case <-p.started:
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for the processing to start")
		}
	}
}

func TestDropWhileBusy(t *testing.T) {
	ctx := testCtx(t)
	proc := newGatedProcessor()
	sink := newRecordingSink()
	s, err := New(ctx, DefaultConfig(), proc, sink)
	require.NoError(t, err)
	defer s.Close(ctx)

	require.True(t, s.OnFrameCaptured(ctx, newFrame(0)))
	proc.waitStarted(t, 1)
	require.False(t, s.OnFrameCaptured(ctx, newFrame(1)))
	require.False(t, s.OnFrameCaptured(ctx, newFrame(2)))

	proc.open(0)
	require.Equal(t, time.Duration(0), sink.next(t))
	require.Eventually(t, func() bool { return s.GetStats().InFlight == 0 }, 5*time.Second, time.Millisecond)

	proc.open(3)
	require.True(t, s.OnFrameCaptured(ctx, newFrame(3)))
	require.Equal(t, 3*time.Millisecond, sink.next(t))

	require.Eventually(t, func() bool { return s.GetStats().InFlight == 0 }, 5*time.Second, time.Millisecond)
	stats := s.GetStats()
	require.Equal(t, uint64(4), stats.Captured)
	require.Equal(t, uint64(2), stats.Forwarded)
	require.Equal(t, uint64(2), stats.DroppedBusy)
}

func TestReorderRestoresOrder(t *testing.T) {
	ctx := testCtx(t)
	proc := newGatedProcessor()
	sink := newRecordingSink()
	s, err := New(ctx, Config{Policy: PolicyReorder, MaxInFlight: 3, ReorderBufferSize: 3}, proc, sink)
	require.NoError(t, err)
	defer s.Close(ctx)

	for ts := 0; ts < 3; ts++ {
		require.True(t, s.OnFrameCaptured(ctx, newFrame(ts)))
	}
	proc.waitStarted(t, 3)
	require.False(t, s.OnFrameCaptured(ctx, newFrame(3)), "max in flight reached")

	proc.open(2)
	proc.open(1)
	sink.requireNothing(t)
	require.Eventually(t, func() bool { return s.GetStats().Buffered == 2 }, 5*time.Second, time.Millisecond)

	proc.open(0)
	require.Equal(t, 0*time.Millisecond, sink.next(t))
	require.Equal(t, 1*time.Millisecond, sink.next(t))
	require.Equal(t, 2*time.Millisecond, sink.next(t))
	require.Eventually(t, func() bool { return s.GetStats().Buffered == 0 }, 5*time.Second, time.Millisecond)
}

func TestReorderOverflowResyncs(t *testing.T) {
	ctx := testCtx(t)
	proc := newGatedProcessor()
	sink := newRecordingSink()
	s, err := New(ctx, Config{Policy: PolicyReorder, MaxInFlight: 4, ReorderBufferSize: 1}, proc, sink)
	require.NoError(t, err)
	defer s.Close(ctx)

	for ts := 0; ts < 3; ts++ {
		require.True(t, s.OnFrameCaptured(ctx, newFrame(ts)))
	}
	proc.waitStarted(t, 3)

	proc.open(1)
	require.Eventually(t, func() bool { return s.GetStats().Buffered == 1 }, 5*time.Second, time.Millisecond)
	proc.open(2)
	require.Eventually(t, func() bool { return s.GetStats().DroppedOverflow == 2 }, 5*time.Second, time.Millisecond)
	require.Equal(t, int64(0), s.GetStats().Buffered)

	// frame 0 is now older than the resync point
	proc.open(0)
	require.Eventually(t, func() bool { return s.GetStats().DroppedStale == 1 }, 5*time.Second, time.Millisecond)
	sink.requireNothing(t)

	proc.open(3)
	require.True(t, s.OnFrameCaptured(ctx, newFrame(3)))
	require.Equal(t, 3*time.Millisecond, sink.next(t))
}

func TestOrderUnderRandomLatency(t *testing.T) {
	for _, cfg := range []Config{
		DefaultConfig(),
		{Policy: PolicyReorder, MaxInFlight: 4, ReorderBufferSize: 4},
		{Policy: PolicyReorder, MaxInFlight: 8, ReorderBufferSize: 1},
	} {
		t.Run(cfg.Policy.String(), func(t *testing.T) {
			ctx := testCtx(t)
			rng := rand.New(rand.NewSource(0))
			var rngLocker sync.Mutex
			proc := ProcessorFunc(func(ctx context.Context, f *frame.Frame) *frame.Frame {
				rngLocker.Lock()
				d := time.Duration(rng.Intn(3000)) * time.Microsecond
				rngLocker.Unlock()
				time.Sleep(d)
				out := f.Clone()
				return out
			})

			var (
				received       []time.Duration
				receivedLocker sync.Mutex
			)
			sink := SinkFunc(func(ctx context.Context, f *frame.Frame) error {
				receivedLocker.Lock()
				defer receivedLocker.Unlock()
				received = append(received, f.Timestamp)
				return nil
			})

			s, err := New(ctx, cfg, proc, sink)
			require.NoError(t, err)

			const count = 300
			for ts := 0; ts < count; ts++ {
				s.OnFrameCaptured(ctx, newFrame(ts))
				time.Sleep(200 * time.Microsecond)
			}
			require.Eventually(t, func() bool { return s.GetStats().InFlight == 0 }, 5*time.Second, time.Millisecond)
			require.NoError(t, s.Close(ctx))

			receivedLocker.Lock()
			defer receivedLocker.Unlock()
			require.NotEmpty(t, received)
			for i := 1; i < len(received); i++ {
				require.Less(t, received[i-1], received[i])
			}

			stats := s.GetStats()
			require.Equal(t, uint64(count), stats.Captured)
			require.Equal(t, uint64(len(received)), stats.Forwarded)
			require.Equal(t, stats.Captured, stats.Forwarded+stats.Dropped())
		})
	}
}

func TestCloseCancelsInFlight(t *testing.T) {
	ctx := testCtx(t)
	proc := newGatedProcessor()
	sink := newRecordingSink()
	s, err := New(ctx, Config{Policy: PolicyReorder, MaxInFlight: 2, ReorderBufferSize: 2}, proc, sink)
	require.NoError(t, err)

	require.True(t, s.OnFrameCaptured(ctx, newFrame(0)))
	require.True(t, s.OnFrameCaptured(ctx, newFrame(1)))
	proc.waitStarted(t, 2)

	require.NoError(t, s.Close(ctx))
	sink.requireNothing(t)
	require.NoError(t, s.Close(ctx))

	require.False(t, s.OnFrameCaptured(ctx, newFrame(2)))
	stats := s.GetStats()
	require.Equal(t, uint64(3), stats.DroppedClosed)
	require.Equal(t, uint64(0), stats.Forwarded)
	require.Equal(t, int64(0), stats.InFlight)
}

func TestCloseReleasesBuffered(t *testing.T) {
	ctx := testCtx(t)
	proc := newGatedProcessor()
	sink := newRecordingSink()
	s, err := New(ctx, Config{Policy: PolicyReorder, MaxInFlight: 2, ReorderBufferSize: 2}, proc, sink)
	require.NoError(t, err)

	require.True(t, s.OnFrameCaptured(ctx, newFrame(0)))
	require.True(t, s.OnFrameCaptured(ctx, newFrame(1)))
	proc.waitStarted(t, 2)
	proc.open(1)
	require.Eventually(t, func() bool { return s.GetStats().Buffered == 1 }, 5*time.Second, time.Millisecond)

	require.NoError(t, s.Close(ctx))
	sink.requireNothing(t)
	stats := s.GetStats()
	require.Equal(t, uint64(2), stats.DroppedClosed)
	require.Equal(t, int64(0), stats.Buffered)
}

func TestSinkErrorDoesNotStopTheStream(t *testing.T) {
	ctx := testCtx(t)
	var calls int
	delivered := make(chan time.Duration, 10)
	sink := SinkFunc(func(ctx context.Context, f *frame.Frame) error {
		calls++
		if calls == 1 {
			return errors.New("the peer is gone for a moment")
		}
		delivered <- f.Timestamp
		return nil
	})
	proc := ProcessorFunc(func(ctx context.Context, f *frame.Frame) *frame.Frame { return f })
	s, err := New(ctx, DefaultConfig(), proc, sink)
	require.NoError(t, err)
	defer s.Close(ctx)

	require.True(t, s.OnFrameCaptured(ctx, newFrame(0)))
	require.Eventually(t, func() bool { return s.GetStats().SinkErrors == 1 && s.GetStats().InFlight == 0 }, 5*time.Second, time.Millisecond)
	require.True(t, s.OnFrameCaptured(ctx, newFrame(1)))
	require.Equal(t, time.Millisecond, <-delivered)
}

func TestNewValidates(t *testing.T) {
	ctx := testCtx(t)
	proc := ProcessorFunc(func(ctx context.Context, f *frame.Frame) *frame.Frame { return f })
	sink := newRecordingSink()

	_, err := New(ctx, Config{}, proc, sink)
	require.Error(t, err)
	_, err = New(ctx, Config{Policy: PolicyReorder}, proc, sink)
	require.Error(t, err)
	_, err = New(ctx, DefaultConfig(), nil, sink)
	require.Error(t, err)
	_, err = New(ctx, DefaultConfig(), proc, nil)
	require.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("reorder")
	require.NoError(t, err)
	require.Equal(t, PolicyReorder, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	require.Equal(t, PolicyDropWhileBusy, p)

	_, err = ParsePolicy("fifo")
	require.Error(t, err)
}

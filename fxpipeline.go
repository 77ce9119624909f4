// Package fxpipeline wires a capture source, the effects and an outbound
// sink together: captured frames go through the scheduler to the effect
// orchestrator, and the results are forwarded to the sink in capture order.
package fxpipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/asticode/go-astikit"
	"github.com/google/uuid"
	"github.com/xaionaro-go/fxpipeline/config"
	"github.com/xaionaro-go/fxpipeline/detector"
	"github.com/xaionaro-go/fxpipeline/effects"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/indicator"
	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/fxpipeline/metrics"
	"github.com/xaionaro-go/fxpipeline/scheduler"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

type Pipeline struct {
	SessionID    uuid.UUID
	Config       config.Config
	Store        config.Store
	Resources    *detector.Resources
	Orchestrator *effects.Orchestrator
	Scheduler    *scheduler.Scheduler
	Metrics      *metrics.Metrics

	reloadLocker xsync.Mutex
	closer       *astikit.Closer
	latency      *indicator.Latency
	isClosed     atomic.Bool
	stats        statistics
}

// New builds a pipeline. The initial effects and watermark come from cfg;
// if store is not nil they are then reloaded from it (a failure to do that
// is logged, and the configuration from cfg is kept).
//
// The pipeline takes the ownership of resources.
func New(
	ctx context.Context,
	cfg config.Config,
	store config.Store,
	resources *detector.Resources,
	sink scheduler.Sink,
) (_ret *Pipeline, _err error) {
	logger.Tracef(ctx, "New")
	defer func() { logger.Tracef(ctx, "/New: %v", _err) }()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := &Pipeline{
		SessionID: uuid.New(),
		Config:    cfg,
		Store:     store,
		Resources: resources,
		closer:    astikit.NewCloser(),
		latency:   indicator.NewLatency(indicator.DefaultWindow),
	}
	ctx = p.withSession(ctx)
	p.Metrics = metrics.New(p.SessionID.String())

	if resources != nil {
		if cfg.Detectors.Timeout > 0 {
			resources.SetTimeout(cfg.Detectors.Timeout)
		}
		p.closer.AddWithError(func() error {
			return resources.Close(xcontext.DetachDone(ctx))
		})
	}

	p.Orchestrator = effects.New(
		resources,
		cfg.EffectiveEffects(cfg.Effects),
		cfg.Watermark.Resolve(ctx),
	)
	p.Orchestrator.Observer = p.Metrics

	sched, err := scheduler.New(xcontext.DetachDone(ctx), cfg.Scheduler, scheduler.ProcessorFunc(p.process), sink)
	if err != nil {
		_ = p.closer.Close()
		return nil, fmt.Errorf("unable to initialize the scheduler: %w", err)
	}
	p.Scheduler = sched
	p.closer.AddWithError(func() error {
		return sched.Close(xcontext.DetachDone(ctx))
	})

	if err := p.Metrics.RegisterScheduler(p.SessionID.String(), sched.GetStats); err != nil {
		_ = p.closer.Close()
		return nil, fmt.Errorf("unable to register the scheduler metrics: %w", err)
	}

	if store != nil {
		if err := p.Reload(ctx); err != nil {
			logger.Errorf(ctx, "unable to load the settings from %s, using the ones from the config: %v", store, err)
		}
	}

	logger.Infof(ctx, "started the pipeline: %s", p)
	return p, nil
}

func (p *Pipeline) withSession(ctx context.Context) context.Context {
	return logger.WithField(ctx, "session", p.SessionID.String())
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("Pipeline(%s: %s)", p.SessionID, p.Orchestrator)
}

// OnFrameCaptured is to be called by the capture source for every frame.
// The pipeline takes the ownership of the frame. It never blocks on the
// processing; false means the frame was dropped.
func (p *Pipeline) OnFrameCaptured(
	ctx context.Context,
	f *frame.Frame,
) bool {
	return p.Scheduler.OnFrameCaptured(p.withSession(ctx), f)
}

func (p *Pipeline) process(ctx context.Context, in *frame.Frame) *frame.Frame {
	startTS := time.Now()
	out := p.Orchestrator.Process(ctx, in)
	p.latency.Observe(ctx, time.Since(startTS))
	return out
}

// Reload re-reads the effects and the watermark settings from the store
// and switches to them atomically: frames already being processed finish
// with the previous configuration. On error the previous configuration
// stays in place.
func (p *Pipeline) Reload(ctx context.Context) (_err error) {
	ctx = p.withSession(ctx)
	logger.Tracef(ctx, "Reload")
	defer func() { logger.Tracef(ctx, "/Reload: %v", _err) }()
	defer func() {
		p.Metrics.ObserveReload(_err)
		p.stats.observeReload(_err)
	}()

	if p.Store == nil {
		return fmt.Errorf("no settings store configured")
	}
	if p.isClosed.Load() {
		return fmt.Errorf("the pipeline is closed")
	}

	return xsync.DoR1(ctx, &p.reloadLocker, func() error {
		startTS := time.Now()
		effectsCfg, watermarkCfg, err := p.Store.Load(ctx)
		if err != nil {
			return fmt.Errorf("unable to load the settings from %s: %w", p.Store, err)
		}
		if err := watermarkCfg.Validate(); err != nil {
			return fmt.Errorf("invalid watermark settings: %w", err)
		}
		effectsCfg = p.Config.EffectiveEffects(effectsCfg)
		p.Orchestrator.Reload(ctx, effectsCfg, watermarkCfg.Resolve(ctx))
		logger.Infof(ctx, "reloaded the settings in %v: %s", time.Since(startTS), p.Orchestrator.Snapshot())
		return nil
	})
}

// GetStats returns the counters of the pipeline.
func (p *Pipeline) GetStats() Statistics {
	stats := p.stats.convert(p.Scheduler.GetStats())
	stats.ProcessingLatency = p.latency.Value(context.Background())
	return stats
}

// Close stops the processing: frames in flight are discarded, detector
// calls are cancelled and the detector services are closed. It is
// idempotent.
func (p *Pipeline) Close(ctx context.Context) (_err error) {
	ctx = p.withSession(ctx)
	logger.Tracef(ctx, "Close")
	defer func() { logger.Tracef(ctx, "/Close: %v", _err) }()
	if p.isClosed.Swap(true) {
		return nil
	}
	if err := p.closer.Close(); err != nil {
		return fmt.Errorf("unable to close the pipeline: %w", err)
	}
	logger.Infof(ctx, "closed the pipeline; %s", p.GetStats())
	return nil
}

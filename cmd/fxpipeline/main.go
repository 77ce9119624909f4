package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/pkg/runtime"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/fxpipeline"
	"github.com/xaionaro-go/fxpipeline/config"
	"github.com/xaionaro-go/fxpipeline/config/sqlitestore"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/fxpipeline/scheduler"
	"github.com/xaionaro-go/fxpipeline/sink/rawvideo"
	"github.com/xaionaro-go/fxpipeline/sink/wsbroadcast"
	"github.com/xaionaro-go/fxpipeline/source/testpattern"
	"github.com/xaionaro-go/observability"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [flags]\n", os.Args[0])
		pflag.PrintDefaults()
	}

	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	configPath := pflag.String("config", "", "path to the YAML configuration file")
	envFiles := pflag.StringSlice("env-file", nil, "the .env files to load (default: .env if it exists)")
	listenAddr := pflag.String("listen-addr", ":8080", "an address to serve the viewer, /ws, /settings and /metrics on")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	fps := pflag.Float64("fps", 0, "capture frame rate (overrides the config)")
	var resolution frame.Resolution
	pflag.Var(&resolution, "resolution", "capture resolution, e.g. 1280x720 (overrides the config)")
	sourceImage := pflag.String("source-image", "", "a picture to use as the capture background instead of the color bars")
	rawOutput := pflag.String("raw-output", "", "also write yuv420p raw video to this file ('-' for stdout)")
	statsInterval := pflag.Duration("stats-interval", 10*time.Second, "how often to log the statistics (0 to disable)")
	dumpConfig := pflag.Bool("dump-config", false, "print the effective configuration and exit")
	pflag.Parse()
	if len(pflag.Args()) != 0 {
		pflag.Usage()
		os.Exit(1)
	}

	runtime.DefaultCallerPCFilter = observability.CallerPCFilter(runtime.DefaultCallerPCFilter)
	ctx := logger.CtxWithLogrus(context.Background(), loggerLevel)
	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()
	defer belt.Flush(ctx)
	logger.RouteAstiav(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) {
			logger.Error(ctx, http.ListenAndServe(*netPprofAddr, nil))
		})
	}

	cfg, overrides, err := loadConfig(ctx, *configPath, *envFiles)
	if err != nil {
		logger.Panic(ctx, err)
	}
	if pflag.CommandLine.Changed("fps") {
		cfg.Capture.FPS = *fps
	}
	if pflag.CommandLine.Changed("resolution") {
		cfg.Capture.Resolution = resolution
	}
	if err := cfg.Validate(); err != nil {
		logger.Panic(ctx, fmt.Errorf("invalid configuration: %w", err))
	}
	if *dumpConfig {
		if err := cfg.Write(os.Stdout); err != nil {
			logger.Panic(ctx, err)
		}
		return
	}
	logger.Debugf(ctx, "configuration: %s", spew.Sdump(cfg))

	if err := run(ctx, cfg, overrides, runParams{
		ConfigPath:    *configPath,
		ListenAddr:    *listenAddr,
		SourceImage:   *sourceImage,
		RawOutput:     *rawOutput,
		StatsInterval: *statsInterval,
	}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Panic(ctx, err)
	}
}

func loadConfig(
	ctx context.Context,
	path string,
	envFiles []string,
) (config.Config, config.Overrides, error) {
	if err := config.LoadDotEnv(ctx, envFiles...); err != nil {
		return config.Config{}, config.Overrides{}, err
	}
	overrides, err := config.OverridesFromEnv()
	if err != nil {
		return config.Config{}, config.Overrides{}, fmt.Errorf("invalid environment: %w", err)
	}

	cfg := config.Default()
	if path != "" {
		cfg, err = config.LoadFile(path)
		if err != nil {
			return config.Config{}, config.Overrides{}, err
		}
	}
	return overrides.Apply(cfg), overrides, nil
}

type runParams struct {
	ConfigPath    string
	ListenAddr    string
	SourceImage   string
	RawOutput     string
	StatsInterval time.Duration
}

func run(
	ctx context.Context,
	cfg config.Config,
	overrides config.Overrides,
	params runParams,
) error {
	closeCtx := context.WithoutCancel(ctx)
	store, closeStore, err := newStore(ctx, cfg, overrides, params.ConfigPath)
	if err != nil {
		return err
	}
	defer closeStore()

	resources, err := newDetectorResources(ctx, cfg.Detectors)
	if err != nil {
		return err
	}

	hub := wsbroadcast.New()
	defer hub.Close(closeCtx)
	outputs := sinks{hub}
	if params.RawOutput != "" {
		raw, err := newRawSink(ctx, params.RawOutput)
		if err != nil {
			_ = resources.Close(closeCtx)
			return err
		}
		defer raw.Close(closeCtx)
		outputs = append(outputs, raw)
	}

	p, err := fxpipeline.New(ctx, cfg, store, resources, outputs)
	if err != nil {
		_ = resources.Close(closeCtx)
		return fmt.Errorf("unable to start the pipeline: %w", err)
	}
	defer func() {
		if err := p.Close(closeCtx); err != nil {
			logger.Errorf(ctx, "unable to close the pipeline: %v", err)
		}
	}()

	srv, err := serveHTTP(ctx, params.ListenAddr, p, hub)
	if err != nil {
		return err
	}
	defer srv.Close()

	var source *testpattern.Source
	if params.SourceImage != "" {
		source, err = testpattern.NewFromImage(params.SourceImage, cfg.Capture.Resolution, cfg.Capture.FPS)
	} else {
		source, err = testpattern.New(cfg.Capture.Resolution, cfg.Capture.FPS)
	}
	if err != nil {
		return fmt.Errorf("unable to initialize the capture source: %w", err)
	}
	sourceErrCh := make(chan error, 1)
	observability.Go(ctx, func(ctx context.Context) {
		sourceErrCh <- source.Run(ctx, p.OnFrameCaptured)
	})

	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)
	defer signal.Stop(hupCh)

	var statsCh <-chan time.Time
	if params.StatsInterval > 0 {
		t := time.NewTicker(params.StatsInterval)
		defer t.Stop()
		statsCh = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sourceErrCh:
			return fmt.Errorf("the capture source stopped: %w", err)
		case <-hupCh:
			logger.Infof(ctx, "SIGHUP received, reloading the settings")
			if err := p.Reload(ctx); err != nil {
				logger.Errorf(ctx, "unable to reload the settings: %v", err)
			}
		case <-statsCh:
			logger.Infof(ctx, "%s; viewers: %d", p.GetStats(), hub.ClientCount(ctx))
		}
	}
}

// newStore picks where the effects and the watermark are reloaded from: the
// SQLite database if configured, otherwise the configuration file.
func newStore(
	ctx context.Context,
	cfg config.Config,
	overrides config.Overrides,
	configPath string,
) (config.Store, func(), error) {
	switch {
	case cfg.Storage.SQLitePath != "":
		s, err := sqlitestore.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open the settings database: %w", err)
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Errorf(ctx, "unable to close the settings database: %v", err)
			}
		}, nil
	case configPath != "":
		return config.NewFileStore(configPath, overrides), func() {}, nil
	default:
		return config.NewStaticStore(cfg.Effects, cfg.Watermark), func() {}, nil
	}
}

func newRawSink(ctx context.Context, path string) (*rawvideo.Sink, error) {
	if path == "-" {
		return rawvideo.New(ctx, nopCloser{os.Stdout}), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create '%s': %w", path, err)
	}
	return rawvideo.New(ctx, f), nil
}

type nopCloser struct {
	*os.File
}

func (nopCloser) Close() error { return nil }

var _ scheduler.Sink = sinks(nil)

func serveHTTP(
	ctx context.Context,
	addr string,
	p *fxpipeline.Pipeline,
	hub *wsbroadcast.Hub,
) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", viewerHandler)
	mux.Handle("/ws", hub)
	mux.Handle("/metrics", p.Metrics.Handler())
	mux.Handle("/settings", settingsHandler(p))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("unable to listen at '%s': %w", addr, err)
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	observability.Go(ctx, func(ctx context.Context) {
		logger.Infof(ctx, "listening at %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf(ctx, "the HTTP server stopped: %v", err)
		}
	})
	return srv, nil
}

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/fxpipeline/scheduler"
	"github.com/xaionaro-go/fxpipeline/watermark"
	"github.com/xaionaro-go/typing"
)

const EnvPrefix = "FXPIPELINE_"

// Overrides are the values set through the environment. Unset values do
// not change the configuration.
type Overrides struct {
	Effects               typing.Optional[Effects]
	WatermarkImagePath    typing.Optional[string]
	WatermarkLocation     typing.Optional[watermark.Location]
	WatermarkSizeFraction typing.Optional[float64]
	WatermarkDensity      typing.Optional[float64]
	SchedulerPolicy       typing.Optional[scheduler.Policy]
	DetectorTimeout       typing.Optional[time.Duration]
	SQLitePath            typing.Optional[string]
}

// LoadDotEnv loads the given .env files (".env" if none are given) into the
// process environment. Missing files are ignored.
func LoadDotEnv(ctx context.Context, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		err := godotenv.Load(file)
		switch {
		case err == nil:
			logger.Debugf(ctx, "loaded environment variables from '%s'", file)
		case errors.Is(err, fs.ErrNotExist):
			logger.Tracef(ctx, "no '%s' file", file)
		default:
			return fmt.Errorf("unable to load '%s': %w", file, err)
		}
	}
	return nil
}

// OverridesFromEnv parses the FXPIPELINE_* variables.
func OverridesFromEnv() (Overrides, error) {
	return parseOverrides(os.LookupEnv)
}

func parseOverrides(lookup func(string) (string, bool)) (Overrides, error) {
	var (
		o    Overrides
		errs []error
	)
	get := func(name string) (string, bool) {
		return lookup(EnvPrefix + name)
	}
	if v, ok := get("EFFECTS"); ok {
		e, err := ParseEffects(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sEFFECTS: %w", EnvPrefix, err))
		} else {
			o.Effects = typing.Opt(e)
		}
	}
	if v, ok := get("WATERMARK_IMAGE"); ok {
		o.WatermarkImagePath = typing.Opt(v)
	}
	if v, ok := get("WATERMARK_LOCATION"); ok {
		l, err := watermark.ParseLocation(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sWATERMARK_LOCATION: %w", EnvPrefix, err))
		} else {
			o.WatermarkLocation = typing.Opt(l)
		}
	}
	if v, ok := get("WATERMARK_SIZE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sWATERMARK_SIZE: %w", EnvPrefix, err))
		} else {
			o.WatermarkSizeFraction = typing.Opt(f)
		}
	}
	if v, ok := get("DENSITY"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sDENSITY: %w", EnvPrefix, err))
		} else {
			o.WatermarkDensity = typing.Opt(f)
		}
	}
	if v, ok := get("SCHEDULER_POLICY"); ok {
		p, err := scheduler.ParsePolicy(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSCHEDULER_POLICY: %w", EnvPrefix, err))
		} else {
			o.SchedulerPolicy = typing.Opt(p)
		}
	}
	if v, ok := get("DETECTOR_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sDETECTOR_TIMEOUT: %w", EnvPrefix, err))
		} else {
			o.DetectorTimeout = typing.Opt(d)
		}
	}
	if v, ok := get("SQLITE_PATH"); ok {
		o.SQLitePath = typing.Opt(v)
	}
	return o, errors.Join(errs...)
}

func (o Overrides) ApplyEffects(e Effects) Effects {
	if o.Effects.IsSet() {
		return o.Effects.Get()
	}
	return e
}

func (o Overrides) ApplyWatermark(s WatermarkSettings) WatermarkSettings {
	if o.WatermarkImagePath.IsSet() {
		s.ImagePath = o.WatermarkImagePath.Get()
	}
	if o.WatermarkLocation.IsSet() {
		s.Location = o.WatermarkLocation.Get()
	}
	if o.WatermarkSizeFraction.IsSet() {
		s.SizeFraction = o.WatermarkSizeFraction.Get()
	}
	if o.WatermarkDensity.IsSet() {
		s.Density = o.WatermarkDensity.Get()
	}
	return s
}

// Apply returns the configuration with the overrides applied.
func (o Overrides) Apply(cfg Config) Config {
	cfg.Effects = o.ApplyEffects(cfg.Effects)
	cfg.Watermark = o.ApplyWatermark(cfg.Watermark)
	if o.SchedulerPolicy.IsSet() {
		cfg.Scheduler.Policy = o.SchedulerPolicy.Get()
	}
	if o.DetectorTimeout.IsSet() {
		cfg.Detectors.Timeout = o.DetectorTimeout.Get()
	}
	if o.SQLitePath.IsSet() {
		cfg.Storage.SQLitePath = o.SQLitePath.Get()
	}
	return cfg
}

// Package config loads the pipeline configuration: a YAML file, optionally
// overridden by environment variables (and a .env file), plus the user
// settings store that can be reloaded while the pipeline runs.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/scheduler"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Effects   Effects           `yaml:"effects"`
	Watermark WatermarkSettings `yaml:"watermark"`

	// ExclusiveFaceEffects makes the face mesh switch off the face
	// outline, see ApplyFaceExclusivity.
	ExclusiveFaceEffects bool `yaml:"exclusive_face_effects"`

	Capture   CaptureSettings  `yaml:"capture"`
	Scheduler scheduler.Config `yaml:"scheduler"`
	Detectors DetectorSettings `yaml:"detectors"`
	Storage   StorageSettings  `yaml:"storage"`
}

type CaptureSettings struct {
	Resolution frame.Resolution `yaml:"resolution"`
	FPS        float64          `yaml:"fps"`
}

// FrameInterval is the time between two captured frames.
func (s CaptureSettings) FrameInterval() time.Duration {
	if s.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / s.FPS)
}

type DetectorSettings struct {
	Timeout         time.Duration `yaml:"timeout"`
	HaarCascadePath string        `yaml:"haar_cascade_path"`
	DNNModelPath    string        `yaml:"dnn_model_path"`
	DNNConfigPath   string        `yaml:"dnn_config_path"`
}

type StorageSettings struct {
	// SQLitePath enables the SQLite settings store if set; otherwise the
	// effects and the watermark are reloaded from the configuration file.
	SQLitePath string `yaml:"sqlite_path"`
}

func Default() Config {
	return Config{
		Effects:   DefaultEffects(),
		Watermark: DefaultWatermarkSettings(),
		Capture: CaptureSettings{
			Resolution: frame.Resolution{Width: 720, Height: 480},
			FPS:        10,
		},
		Scheduler: scheduler.DefaultConfig(),
		Detectors: DetectorSettings{
			Timeout: 500 * time.Millisecond,
		},
	}
}

// Read parses YAML on top of the defaults: fields missing in the input keep
// their default values.
func Read(r io.Reader) (Config, error) {
	cfg := Default()
	b, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read the config: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("unable to parse the config: %w", err)
	}
	return cfg, nil
}

func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to open config file '%s': %w", path, err)
	}
	defer f.Close()
	cfg, err := Read(f)
	if err != nil {
		return Config{}, fmt.Errorf("unable to load '%s': %w", path, err)
	}
	return cfg, nil
}

func (cfg Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("unable to serialize the config: %w", err)
	}
	return enc.Close()
}

func (cfg Config) Validate() error {
	var errs []error
	if err := cfg.Watermark.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("watermark: %w", err))
	}
	if cfg.Capture.Resolution.Width == 0 || cfg.Capture.Resolution.Height == 0 {
		errs = append(errs, fmt.Errorf("capture: invalid resolution %s", cfg.Capture.Resolution))
	}
	if cfg.Capture.FPS <= 0 {
		errs = append(errs, fmt.Errorf("capture: fps must be positive, but is %v", cfg.Capture.FPS))
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: %w", err))
	}
	if cfg.Detectors.Timeout < 0 {
		errs = append(errs, fmt.Errorf("detectors: timeout must not be negative, but is %v", cfg.Detectors.Timeout))
	}
	return errors.Join(errs...)
}

// EffectiveEffects is Effects after the policies of the configuration are
// applied to it.
func (cfg Config) EffectiveEffects(e Effects) Effects {
	if cfg.ExclusiveFaceEffects {
		e = ApplyFaceExclusivity(e)
	}
	return e
}

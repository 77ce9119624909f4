package config

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/xsync"
)

// Store is where the user settings live. Load is called at startup and on
// every reload.
type Store interface {
	Load(ctx context.Context) (Effects, WatermarkSettings, error)
}

// FileStore re-reads the effects and the watermark from a YAML file.
type FileStore struct {
	Path      string
	Overrides Overrides
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string, overrides Overrides) *FileStore {
	return &FileStore{
		Path:      path,
		Overrides: overrides,
	}
}

func (s *FileStore) String() string {
	return fmt.Sprintf("FileStore(%s)", s.Path)
}

func (s *FileStore) Load(ctx context.Context) (_ Effects, _ WatermarkSettings, _err error) {
	logger.Tracef(ctx, "Load")
	defer func() { logger.Tracef(ctx, "/Load: %v", _err) }()
	cfg, err := LoadFile(s.Path)
	if err != nil {
		return Effects{}, WatermarkSettings{}, err
	}
	cfg = s.Overrides.Apply(cfg)
	if err := cfg.Watermark.Validate(); err != nil {
		return Effects{}, WatermarkSettings{}, fmt.Errorf("invalid watermark settings in '%s': %w", s.Path, err)
	}
	return cfg.Effects, cfg.Watermark, nil
}

// StaticStore keeps the settings in memory.
type StaticStore struct {
	locker    xsync.Mutex
	effects   Effects
	watermark WatermarkSettings
}

var _ Store = (*StaticStore)(nil)

func NewStaticStore(effects Effects, watermark WatermarkSettings) *StaticStore {
	return &StaticStore{
		effects:   effects,
		watermark: watermark,
	}
}

func (s *StaticStore) Load(ctx context.Context) (effects Effects, watermark WatermarkSettings, _ error) {
	s.locker.Do(ctx, func() {
		effects, watermark = s.effects, s.watermark
	})
	return
}

func (s *StaticStore) Set(ctx context.Context, effects Effects, watermark WatermarkSettings) {
	s.locker.Do(ctx, func() {
		s.effects = effects
		s.watermark = watermark
	})
}

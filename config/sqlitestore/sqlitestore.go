// Package sqlitestore persists the user settings (enabled effects and the
// watermark) in a SQLite database, as key-value rows.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xaionaro-go/fxpipeline/config"
	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/fxpipeline/transform"
	"github.com/xaionaro-go/fxpipeline/watermark"
)

const (
	keyPrefixEffect       = "effect."
	keyWatermarkImagePath = "watermark.image_path"
	keyWatermarkLocation  = "watermark.location"
	keyWatermarkMarginDP  = "watermark.margin_dp"
	keyWatermarkDensity   = "watermark.density"
	keyWatermarkSize      = "watermark.size_fraction"
)

type Store struct {
	DB *sql.DB
}

var _ config.Store = (*Store)(nil)

// Open opens (creating if needed) the database at the given path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("unable to open the database '%s': %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{DB: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to migrate the database '%s': %w", path, err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`)
	return err
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) String() string {
	return "SQLiteStore"
}

func (s *Store) readAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("unable to query the settings: %w", err)
	}
	defer rows.Close()

	result := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("unable to scan a setting: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read the settings: %w", err)
	}
	return result, nil
}

// Load returns the stored settings; whatever was never saved has its
// default value.
func (s *Store) Load(ctx context.Context) (_ config.Effects, _ config.WatermarkSettings, _err error) {
	logger.Tracef(ctx, "Load")
	defer func() { logger.Tracef(ctx, "/Load: %v", _err) }()

	kv, err := s.readAll(ctx)
	if err != nil {
		return config.Effects{}, config.WatermarkSettings{}, err
	}

	var errs []error
	effects := config.DefaultEffects()
	for _, kind := range transform.Kinds() {
		v, ok := kv[keyPrefixEffect+kind.String()]
		if !ok {
			continue
		}
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid value of '%s%s': %w", keyPrefixEffect, kind, err))
			continue
		}
		effects = effects.With(kind, enabled)
	}

	wm := config.DefaultWatermarkSettings()
	if v, ok := kv[keyWatermarkImagePath]; ok {
		wm.ImagePath = v
	}
	if v, ok := kv[keyWatermarkLocation]; ok {
		loc, err := watermark.ParseLocation(v)
		if err != nil {
			errs = append(errs, err)
		} else {
			wm.Location = loc
		}
	}
	for key, dst := range map[string]*float64{
		keyWatermarkMarginDP: &wm.MarginDP,
		keyWatermarkDensity:  &wm.Density,
		keyWatermarkSize:     &wm.SizeFraction,
	} {
		v, ok := kv[key]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid value of '%s': %w", key, err))
			continue
		}
		*dst = f
	}
	if err := errors.Join(errs...); err != nil {
		return config.Effects{}, config.WatermarkSettings{}, err
	}
	if err := wm.Validate(); err != nil {
		return config.Effects{}, config.WatermarkSettings{}, fmt.Errorf("invalid watermark settings: %w", err)
	}
	return effects, wm, nil
}

// Save stores all the settings in a single transaction.
func (s *Store) Save(
	ctx context.Context,
	effects config.Effects,
	wm config.WatermarkSettings,
) (_err error) {
	logger.Tracef(ctx, "Save")
	defer func() { logger.Tracef(ctx, "/Save: %v", _err) }()

	if err := wm.Validate(); err != nil {
		return fmt.Errorf("invalid watermark settings: %w", err)
	}

	kv := map[string]string{
		keyWatermarkImagePath: wm.ImagePath,
		keyWatermarkLocation:  wm.Location.String(),
		keyWatermarkMarginDP:  strconv.FormatFloat(wm.MarginDP, 'g', -1, 64),
		keyWatermarkDensity:   strconv.FormatFloat(wm.Density, 'g', -1, 64),
		keyWatermarkSize:      strconv.FormatFloat(wm.SizeFraction, 'g', -1, 64),
	}
	for _, kind := range transform.Kinds() {
		kv[keyPrefixEffect+kind.String()] = strconv.FormatBool(effects.IsEnabled(kind))
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin a transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("unable to prepare the statement: %w", err)
	}
	defer stmt.Close()

	for key, value := range kv {
		if _, err := stmt.ExecContext(ctx, key, value); err != nil {
			return fmt.Errorf("unable to store '%s': %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit: %w", err)
	}
	return nil
}

// Package rrd stores normalized samples in a fixed-size round-robin archive
// kept in SQLite. Each data source (resource + attribute) owns Rows slots of
// Step duration; writes wrap around and overwrite the oldest slot.
package rrd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/HerbHall/netcollect/internal/store"
	"github.com/HerbHall/netcollect/pkg/collection"
	"go.uber.org/zap"
)

// ErrTypeMismatch is returned when a sample's class differs from the class
// its data source was created with.
var ErrTypeMismatch = errors.New("data source type mismatch")

// ErrLayoutChanged is returned when an existing archive is opened with a
// different step or row count than it was created with.
var ErrLayoutChanged = errors.New("archive layout changed")

const owner = "rrd"

// Config sizes the archive.
type Config struct {
	Step time.Duration
	Rows int
}

// DefaultConfig keeps one week of five minute samples.
func DefaultConfig() Config {
	return Config{Step: 5 * time.Minute, Rows: 2016}
}

// Source describes one data source in the archive.
type Source struct {
	Resource    collection.ResourceID `json:"resource"`
	Name        string                `json:"name"`
	Class       string                `json:"class"`
	StorageType string                `json:"storage_type"`
	Step        time.Duration         `json:"step"`
	Rows        int                   `json:"rows"`
}

// Point is one archived slot. A nil Value is an unknown data point.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     *float64  `json:"value"`
}

// Result summarizes one Persist call.
type Result struct {
	Written  int `json:"written"`
	Unknown  int `json:"unknown"`
	Skipped  int `json:"skipped"`
	Rejected int `json:"rejected"`
}

// Archive is the round-robin persistence engine.
type Archive struct {
	store  store.Store
	cfg    Config
	logger *zap.Logger
}

// New applies the archive schema to s and returns an Archive.
func New(ctx context.Context, s store.Store, cfg Config, logger *zap.Logger) (*Archive, error) {
	if cfg.Step < time.Second {
		return nil, fmt.Errorf("rrd: step %v must be at least 1s", cfg.Step)
	}
	if cfg.Rows <= 0 {
		return nil, fmt.Errorf("rrd: rows must be positive, got %d", cfg.Rows)
	}
	applied, err := s.Migrate(ctx, owner, migrations())
	if err != nil {
		return nil, fmt.Errorf("rrd: migrate: %w", err)
	}
	for _, m := range applied {
		logger.Info("archive schema migrated",
			zap.Int("version", m.Version),
			zap.String("description", m.Description),
		)
	}
	if err := checkLayout(ctx, s, cfg); err != nil {
		return nil, err
	}
	return &Archive{store: s, cfg: cfg, logger: logger}, nil
}

// checkLayout records step and rows on first use. Slots are addressed by
// time modulo the layout, so a reopened archive must keep it.
func checkLayout(ctx context.Context, s store.Store, cfg Config) error {
	step := strconv.FormatInt(int64(cfg.Step/time.Second), 10)
	rows := strconv.Itoa(cfg.Rows)

	storedStep, ok, err := s.Setting(ctx, owner, "step_seconds")
	if err != nil {
		return fmt.Errorf("rrd: %w", err)
	}
	if !ok {
		if err := s.SetSetting(ctx, owner, "step_seconds", step); err != nil {
			return fmt.Errorf("rrd: %w", err)
		}
		if err := s.SetSetting(ctx, owner, "rows", rows); err != nil {
			return fmt.Errorf("rrd: %w", err)
		}
		return nil
	}
	storedRows, _, err := s.Setting(ctx, owner, "rows")
	if err != nil {
		return fmt.Errorf("rrd: %w", err)
	}
	if storedStep != step || storedRows != rows {
		return fmt.Errorf("%w: created with step %ss and %s rows, configured with step %ss and %s rows",
			ErrLayoutChanged, storedStep, storedRows, step, rows)
	}
	return nil
}

// Config returns the archive sizing.
func (a *Archive) Config() Config { return a.cfg }

// Persist writes every sample whose Persist flag is set into the slot that
// covers at. Unknown values are stored as NULL. A sample whose class
// conflicts with its existing data source is rejected and logged; the rest of
// the cycle is still written.
func (a *Archive) Persist(ctx context.Context, samples []collection.Sample, at time.Time) (Result, error) {
	var res Result
	stepSec := int64(a.cfg.Step / time.Second)
	ts := at.UTC().Unix() / stepSec * stepSec
	slot := (ts / stepSec) % int64(a.cfg.Rows)

	err := a.store.Tx(ctx, func(tx *sql.Tx) error {
		for i := range samples {
			s := &samples[i]
			if !s.Persist {
				res.Skipped++
				continue
			}

			if err := a.ensureSource(ctx, tx, s); err != nil {
				if errors.Is(err, ErrTypeMismatch) {
					a.logger.Warn("rejecting sample",
						zap.String("resource", string(s.Resource.ID)),
						zap.String("attribute", s.Name),
						zap.Error(err),
					)
					res.Rejected++
					continue
				}
				return err
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO rrd_points (resource_id, ds_name, slot, ts, value)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (resource_id, ds_name, slot)
				DO UPDATE SET ts = excluded.ts, value = excluded.value`,
				string(s.Resource.ID), s.Name, slot, ts, sqlValue(s.Value),
			); err != nil {
				return fmt.Errorf("write %s/%s: %w", s.Resource.ID, s.Name, err)
			}

			if s.Value.Known() {
				res.Written++
			} else {
				res.Unknown++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("rrd: persist: %w", err)
	}
	return res, nil
}

// Fetch returns the stored points for one data source between from and to
// (inclusive), oldest first.
func (a *Archive) Fetch(ctx context.Context, resource collection.ResourceID, name string, from, to time.Time) ([]Point, error) {
	rows, err := a.store.DB().QueryContext(ctx, `
		SELECT ts, value FROM rrd_points
		WHERE resource_id = ? AND ds_name = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC`,
		string(resource), name, from.UTC().Unix(), to.UTC().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("rrd: fetch %s/%s: %w", resource, name, err)
	}
	defer rows.Close()

	points := make([]Point, 0)
	for rows.Next() {
		var (
			ts  int64
			val sql.NullFloat64
		)
		if err := rows.Scan(&ts, &val); err != nil {
			return nil, fmt.Errorf("rrd: scan point: %w", err)
		}
		p := Point{Timestamp: time.Unix(ts, 0).UTC()}
		if val.Valid {
			v := val.Float64
			p.Value = &v
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Sources lists the data sources of a resource, sorted by name.
func (a *Archive) Sources(ctx context.Context, resource collection.ResourceID) ([]Source, error) {
	rows, err := a.store.DB().QueryContext(ctx, `
		SELECT ds_name, ds_class, storage_type, step_seconds, row_count
		FROM rrd_sources WHERE resource_id = ? ORDER BY ds_name`,
		string(resource),
	)
	if err != nil {
		return nil, fmt.Errorf("rrd: list sources: %w", err)
	}
	defer rows.Close()

	sources := make([]Source, 0)
	for rows.Next() {
		src := Source{Resource: resource}
		var stepSec int64
		if err := rows.Scan(&src.Name, &src.Class, &src.StorageType, &stepSec, &src.Rows); err != nil {
			return nil, fmt.Errorf("rrd: scan source: %w", err)
		}
		src.Step = time.Duration(stepSec) * time.Second
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (a *Archive) ensureSource(ctx context.Context, tx *sql.Tx, s *collection.Sample) error {
	class := s.Value.Class().String()

	var existing string
	err := tx.QueryRowContext(ctx,
		"SELECT ds_class FROM rrd_sources WHERE resource_id = ? AND ds_name = ?",
		string(s.Resource.ID), s.Name,
	).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rrd_sources (resource_id, ds_name, ds_class, storage_type, step_seconds, row_count)
			VALUES (?, ?, ?, ?, ?, ?)`,
			string(s.Resource.ID), s.Name, class, s.Type, int64(a.cfg.Step/time.Second), a.cfg.Rows,
		)
		if err != nil {
			return fmt.Errorf("create source %s/%s: %w", s.Resource.ID, s.Name, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("lookup source %s/%s: %w", s.Resource.ID, s.Name, err)
	case existing != class:
		return fmt.Errorf("%w: %s is %s, sample is %s", ErrTypeMismatch, s.Name, existing, class)
	}
	return nil
}

// sqlValue maps a normalized value to its column value. Counters keep their
// integer form; the unknown value becomes NULL.
func sqlValue(v collection.Value) any {
	if !v.Known() {
		return nil
	}
	if v.Class() == collection.ClassCounter {
		i, _ := v.Int64()
		return i
	}
	f, _ := v.Float64()
	return f
}

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create rrd_sources and rrd_points",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE rrd_sources (
						resource_id  TEXT    NOT NULL,
						ds_name      TEXT    NOT NULL,
						ds_class     TEXT    NOT NULL,
						storage_type TEXT    NOT NULL,
						step_seconds INTEGER NOT NULL,
						row_count    INTEGER NOT NULL,
						created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						PRIMARY KEY (resource_id, ds_name)
					);
					CREATE TABLE rrd_points (
						resource_id TEXT    NOT NULL,
						ds_name     TEXT    NOT NULL,
						slot        INTEGER NOT NULL,
						ts          INTEGER NOT NULL,
						value       NUMERIC,
						PRIMARY KEY (resource_id, ds_name, slot),
						FOREIGN KEY (resource_id, ds_name)
							REFERENCES rrd_sources (resource_id, ds_name) ON DELETE CASCADE
					);
					CREATE INDEX idx_rrd_points_ts ON rrd_points (resource_id, ds_name, ts);
				`)
				return err
			},
		},
	}
}

// Package store opens the SQLite database behind the archive and tracks
// per-owner schema versions and settings.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrMigrationOrder is returned when migrations are not listed in strictly
// ascending version order.
var ErrMigrationOrder = errors.New("migrations out of order")

// Migration is one schema change owned by a component.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// Store is the persistence handle the archive is built on.
type Store interface {
	DB() *sql.DB
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error
	Migrate(ctx context.Context, owner string, migrations []Migration) ([]Migration, error)
	Setting(ctx context.Context, owner, key string) (string, bool, error)
	SetSetting(ctx context.Context, owner, key, value string) error
	Checkpoint(ctx context.Context) error
	Close() error
}

var _ Store = (*SQLiteStore)(nil)

// pragmas run on every new database handle. modernc.org/sqlite takes them
// as statements, not DSN parameters.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

const bookkeeping = `
	CREATE TABLE IF NOT EXISTS _migrations (
		owner       TEXT     NOT NULL,
		version     INTEGER  NOT NULL,
		description TEXT     NOT NULL,
		applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (owner, version)
	);
	CREATE TABLE IF NOT EXISTS _settings (
		owner TEXT NOT NULL,
		key   TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (owner, key)
	)`

// SQLiteStore is a Store on a single SQLite connection.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// New opens or creates the database at path and prepares the bookkeeping
// tables. ":memory:" gives a private in-memory database.
func New(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One connection: writers are serialized and an in-memory database is
	// not split across connections.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %q: %s: %w", path, p, err)
		}
	}
	if _, err := db.ExecContext(ctx, bookkeeping); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite %q: create bookkeeping tables: %w", path, err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Tx runs fn in a transaction, committing when fn returns nil.
func (s *SQLiteStore) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}
	return tx.Commit()
}

// Migrate applies the migrations owner has not applied yet and returns
// them. Each migration commits on its own; a failure leaves the earlier
// ones applied.
func (s *SQLiteStore) Migrate(ctx context.Context, owner string, migrations []Migration) ([]Migration, error) {
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			return nil, fmt.Errorf("%w: %s/%d after %d", ErrMigrationOrder,
				owner, migrations[i].Version, migrations[i-1].Version)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	done, err := s.appliedVersions(ctx, owner)
	if err != nil {
		return nil, err
	}

	var applied []Migration
	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		err := s.Tx(ctx, func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO _migrations (owner, version, description) VALUES (?, ?, ?)",
				owner, m.Version, m.Description)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("migration %s/%d (%s): %w", owner, m.Version, m.Description, err)
		}
		applied = append(applied, m)
	}
	return applied, nil
}

func (s *SQLiteStore) appliedVersions(ctx context.Context, owner string) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM _migrations WHERE owner = ?", owner)
	if err != nil {
		return nil, fmt.Errorf("list migrations for %s: %w", owner, err)
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("list migrations for %s: %w", owner, err)
		}
		done[v] = true
	}
	return done, rows.Err()
}

// Setting returns the value stored under owner/key.
func (s *SQLiteStore) Setting(ctx context.Context, owner, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM _settings WHERE owner = ? AND key = ?", owner, key,
	).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("read setting %s/%s: %w", owner, key, err)
	}
	return v, true, nil
}

// SetSetting stores value under owner/key, replacing any previous value.
func (s *SQLiteStore) SetSetting(ctx context.Context, owner, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO _settings (owner, key, value) VALUES (?, ?, ?)
		ON CONFLICT (owner, key) DO UPDATE SET value = excluded.value`,
		owner, key, value)
	if err != nil {
		return fmt.Errorf("write setting %s/%s: %w", owner, key, err)
	}
	return nil
}

// Checkpoint folds the write-ahead log into the main database file so the
// file can be copied on its own.
func (s *SQLiteStore) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint %q: %w", s.path, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

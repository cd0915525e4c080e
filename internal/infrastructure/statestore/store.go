package statestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/fieldline/datapump/internal/infrastructure/config"
)

// Store configuration constants.
const (
	// dirPermissions is the permission mode for the state directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the state file.
	filePermissions = 0600

	// busyTimeoutMS is the SQLite busy timeout in milliseconds.
	busyTimeoutMS = 5000

	// connectionTimeout is the timeout for verifying connectivity.
	connectionTimeout = 5 * time.Second
)

// schema holds the single-row watermark table. The CHECK constraint pins
// the row id so upserts always target the same row.
const schema = `
CREATE TABLE IF NOT EXISTS watermark (
	id        INTEGER PRIMARY KEY CHECK (id = 1),
	mtime_ms  INTEGER NOT NULL
);`

// Store persists pipeline state (the live-mode watermark) in SQLite so a
// restarted extractor resumes where it left off instead of re-scanning
// the whole backlog.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the state store at the configured path.
//
// It performs the following setup:
//  1. Creates the state directory if it doesn't exist
//  2. Opens the database file (creates if not present)
//  3. Configures WAL mode and busy timeout
//  4. Creates the watermark table if missing
//  5. Verifies the connection with a ping
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - cfg: State configuration from config.yaml
//
// Returns:
//   - *Store: Connected store
//   - error: If the store is disabled, or opening/configuration fails
func Open(ctx context.Context, cfg config.StateConfig) (*Store, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		cfg.Path, busyTimeoutMS)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	// SQLite only supports one writer; the pipeline is single-threaded anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying state store connection: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("creating state schema: %w", err)
	}

	// Owner read/write only; ignore error on first run before the file exists.
	_ = os.Chmod(cfg.Path, filePermissions)

	return &Store{db: db, path: cfg.Path}, nil
}

// Close closes the state store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing state store: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the state file.
func (s *Store) Path() string {
	return s.path
}

// HealthCheck verifies the store is accessible and functioning.
func (s *Store) HealthCheck(ctx context.Context) error {
	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("state store health check failed: %w", err)
	}
	return nil
}

// Watermark returns the persisted watermark.
//
// Returns:
//   - time.Time: The persisted watermark (zero if none)
//   - bool: Whether a watermark has been persisted
//   - error: If the query fails
func (s *Store) Watermark(ctx context.Context) (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx, "SELECT mtime_ms FROM watermark WHERE id = 1").Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading watermark: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}

// SetWatermark persists the watermark, overwriting any previous value.
func (s *Store) SetWatermark(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watermark (id, mtime_ms) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET mtime_ms = excluded.mtime_ms`,
		t.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("writing watermark: %w", err)
	}
	return nil
}

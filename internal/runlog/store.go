package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"storyart/internal/config"
	"storyart/internal/services"
)

const schemaVersion = 1

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// ItemFailure is one non-fatal per-item failure from a run.
type ItemFailure struct {
	BeatID string `json:"beat_id"`
	Format string `json:"format"`
	Reason string `json:"reason"`
}

// Record is one pipeline run's persisted summary.
type Record struct {
	RunID      string
	SessionKey string
	Mode       string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Skipped    int
	Failures   []ItemFailure
}

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the run history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "runs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:   db,
		path: dbPath,
		lock: flock.New(dbPath + ".lock"),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var hasVersionTable int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&hasVersionTable)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if hasVersionTable > 0 {
		var version int
		if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		if version == schemaVersion {
			return nil
		}
		if version > schemaVersion {
			return fmt.Errorf("run history database is newer than this build (schema %d > %d)", version, schemaVersion)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			session_key TEXT NOT NULL,
			mode TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			total INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			failures_json TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at DESC)`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("reset schema version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Record inserts one run summary.
func (s *Store) Record(ctx context.Context, record Record) error {
	if strings.TrimSpace(record.RunID) == "" {
		return services.Wrap(services.ErrValidation, "runlog", "record", "run id required", nil)
	}
	failures, err := json.Marshal(record.Failures)
	if err != nil {
		return fmt.Errorf("marshal failures: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("acquire run history lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.execWithRetry(ctx,
		`INSERT INTO runs (
			run_id, session_key, mode, started_at, finished_at,
			total, succeeded, skipped, failures_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.SessionKey,
		record.Mode,
		record.StartedAt.UTC().Format(time.RFC3339Nano),
		record.FinishedAt.UTC().Format(time.RFC3339Nano),
		record.Total,
		record.Succeeded,
		record.Skipped,
		string(failures),
	)
}

// Recent returns the newest runs, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, session_key, mode, started_at, finished_at,
			total, succeeded, skipped, failures_json
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Get fetches one run by id. A unique id prefix is accepted, so the
// shortened ids shown in listings resolve too.
func (s *Store) Get(ctx context.Context, runID string) (Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, session_key, mode, started_at, finished_at,
			total, succeeded, skipped, failures_json
		 FROM runs WHERE run_id = ? OR run_id LIKE ? || '%' LIMIT 2`, runID, runID)
	if err != nil {
		return Record{}, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var matches []Record
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return Record{}, err
		}
		matches = append(matches, record)
	}
	if err := rows.Err(); err != nil {
		return Record{}, err
	}
	switch len(matches) {
	case 0:
		return Record{}, services.Wrap(services.ErrNotFound, "runlog", "get", "no run with id "+runID, nil)
	case 1:
		return matches[0], nil
	default:
		return Record{}, services.Wrap(services.ErrValidation, "runlog", "get", "run id prefix "+runID+" is ambiguous", nil)
	}
}

func scanRecord(scan func(dest ...any) error) (Record, error) {
	var (
		record       Record
		startedAt    string
		finishedAt   string
		failuresJSON string
	)
	if err := scan(
		&record.RunID, &record.SessionKey, &record.Mode, &startedAt, &finishedAt,
		&record.Total, &record.Succeeded, &record.Skipped, &failuresJSON,
	); err != nil {
		return Record{}, err
	}
	var err error
	if record.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return Record{}, fmt.Errorf("parse started_at: %w", err)
	}
	if record.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
		return Record{}, fmt.Errorf("parse finished_at: %w", err)
	}
	if err := json.Unmarshal([]byte(failuresJSON), &record.Failures); err != nil {
		return Record{}, fmt.Errorf("parse failures: %w", err)
	}
	return record, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = s.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Package history stores a record of every build run in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/pkg/foundation"
)

// FileName is the database file name inside the state directory.
const FileName = "history.db"

// Status of a finished run.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Run is one recorded build.
type Run struct {
	ID        string    `json:"id"`
	Trigger   string    `json:"trigger"` // build, watch, schedule
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Status    string    `json:"status"`
	Languages []string  `json:"languages"`
	Artifacts int       `json:"artifacts"`
	Changed   int       `json:"changed"`
	Warnings  []Warning `json:"warnings,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Warning is one warning raised during a run.
type Warning struct {
	Category string            `json:"category"`
	Message  string            `json:"message"`
	Context  map[string]string `json:"context,omitempty"`
}

// Store implements build history using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the history database at path. Use ":memory:" for an
// in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, lderrors.WrapError(err, lderrors.CategoryHistory, "create history directory").
				WithContext("path", path).Build()
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, lderrors.WrapError(err, lderrors.CategoryHistory, "open history database").
			WithContext("path", path).Build()
	}
	// every connection to :memory: would see its own database
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, lderrors.WrapError(err, lderrors.CategoryHistory, "initialize history schema").
			WithContext("path", path).Build()
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		trigger TEXT NOT NULL,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		status TEXT NOT NULL,
		languages TEXT NOT NULL,
		artifacts INTEGER NOT NULL,
		changed INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS warnings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		category TEXT NOT NULL,
		message TEXT NOT NULL,
		context TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
	CREATE INDEX IF NOT EXISTS idx_warnings_run ON warnings(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a finished run with its warnings.
func (s *Store) Record(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	languages, err := json.Marshal(run.Languages)
	if err != nil {
		return fmt.Errorf("marshal languages: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return lderrors.WrapError(err, lderrors.CategoryHistory, "begin transaction").Build()
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs (id, trigger, started, finished, status, languages, artifacts, changed, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.Trigger, run.Started.UnixMilli(), run.Finished.UnixMilli(), run.Status, string(languages),
		run.Artifacts, run.Changed, run.Error,
	)
	if err != nil {
		return lderrors.WrapError(err, lderrors.CategoryHistory, "insert run").WithContext("build_id", run.ID).Build()
	}

	for _, w := range run.Warnings {
		var contextJSON []byte
		if len(w.Context) > 0 {
			contextJSON, err = json.Marshal(w.Context)
			if err != nil {
				return fmt.Errorf("marshal warning context: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO warnings (run_id, category, message, context) VALUES (?, ?, ?, ?)",
			run.ID, w.Category, w.Message, contextJSON,
		); err != nil {
			return lderrors.WrapError(err, lderrors.CategoryHistory, "insert warning").WithContext("build_id", run.ID).Build()
		}
	}

	if err := tx.Commit(); err != nil {
		return lderrors.WrapError(err, lderrors.CategoryHistory, "commit run").WithContext("build_id", run.ID).Build()
	}
	return nil
}

// Recent returns up to limit runs, newest first, without their warnings.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, trigger, started, finished, status, languages, artifacts, changed, error FROM runs ORDER BY started DESC, id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, lderrors.WrapError(err, lderrors.CategoryHistory, "query runs").Build()
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// Get returns one run including its warnings.
func (s *Store) Get(ctx context.Context, id string) (foundation.Option[Run], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, trigger, started, finished, status, languages, artifacts, changed, error FROM runs WHERE id = ?",
		id,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return foundation.None[Run](), nil
	}
	if err != nil {
		return foundation.None[Run](), err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT category, message, context FROM warnings WHERE run_id = ? ORDER BY id",
		id,
	)
	if err != nil {
		return foundation.None[Run](), lderrors.WrapError(err, lderrors.CategoryHistory, "query warnings").Build()
	}
	defer rows.Close()
	for rows.Next() {
		var w Warning
		var contextJSON []byte
		if err := rows.Scan(&w.Category, &w.Message, &contextJSON); err != nil {
			return foundation.None[Run](), fmt.Errorf("scan warning: %w", err)
		}
		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &w.Context); err != nil {
				return foundation.None[Run](), fmt.Errorf("unmarshal warning context: %w", err)
			}
		}
		run.Warnings = append(run.Warnings, w)
	}
	if err := rows.Err(); err != nil {
		return foundation.None[Run](), fmt.Errorf("iterate rows: %w", err)
	}
	return foundation.Some(run), nil
}

// Prune deletes all but the newest keep runs and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM warnings WHERE run_id NOT IN (SELECT id FROM runs ORDER BY started DESC, id LIMIT ?)", keep,
	); err != nil {
		return 0, lderrors.WrapError(err, lderrors.CategoryHistory, "prune warnings").Build()
	}
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started DESC, id LIMIT ?)", keep,
	)
	if err != nil {
		return 0, lderrors.WrapError(err, lderrors.CategoryHistory, "prune runs").Build()
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r                 Run
		started, finished int64
		languages         string
	)
	err := row.Scan(&r.ID, &r.Trigger, &started, &finished, &r.Status, &languages, &r.Artifacts, &r.Changed, &r.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Started = time.UnixMilli(started).UTC()
	r.Finished = time.UnixMilli(finished).UTC()
	if err := json.Unmarshal([]byte(languages), &r.Languages); err != nil {
		return Run{}, fmt.Errorf("unmarshal languages: %w", err)
	}
	return r, nil
}

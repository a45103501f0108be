// Package history keeps an index of past runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when a run ID is not in the index.
var ErrNotFound = errors.New("run not found")

// Entry is one recorded run.
type Entry struct {
	RunID      string    `json:"run_id"`
	Name       string    `json:"name"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	Stage      string    `json:"stage"`
	Winner     string    `json:"winner,omitempty"`
	Confidence string    `json:"confidence,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Artifact   string    `json:"artifact,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (e Entry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	stage TEXT NOT NULL DEFAULT '',
	winner TEXT NOT NULL DEFAULT '',
	confidence TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	artifact TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	started_at DATETIME,
	finished_at DATETIME
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);
`

// Open opens or creates the index at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts or replaces the entry for e.RunID.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.RunID == "" {
		return fmt.Errorf("run id is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, name, mode, status, stage, winner, confidence, summary, artifact, error_message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Name, e.Mode, e.Status, e.Stage, e.Winner, e.Confidence, e.Summary,
		e.Artifact, e.Error, e.StartedAt.UTC(), e.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", e.RunID, err)
	}
	return nil
}

// List returns the most recent runs first. A limit of 0 returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, name, mode, status, stage, winner, confidence, summary, artifact, error_message, started_at, finished_at
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get fetches a single run by ID.
func (s *Store) Get(ctx context.Context, runID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, mode, status, stage, winner, confidence, summary, artifact, error_message, started_at, finished_at
		FROM runs WHERE id = ?`, runID)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%s: %w", runID, ErrNotFound)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	err := sc.Scan(&e.RunID, &e.Name, &e.Mode, &e.Status, &e.Stage, &e.Winner, &e.Confidence,
		&e.Summary, &e.Artifact, &e.Error, &e.StartedAt, &e.FinishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("failed to scan run: %w", err)
	}
	return e, nil
}

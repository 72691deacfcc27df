// Package history keeps a durable ledger of completed jobs in SQLite, so
// past generations can be listed and their artifacts found again.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"genvid/internal/core/domain"
)

// Store wraps a SQLite connection with WAL mode and migrations.
type Store struct {
	db *sql.DB
}

// Open creates or opens the ledger database at dir/history.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := filepath.Join(dir, "history.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close cleanly shuts down the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS jobs (
		id            TEXT PRIMARY KEY,
		kind          TEXT NOT NULL,
		model         TEXT NOT NULL DEFAULT '',
		task_id       TEXT NOT NULL DEFAULT '',
		success       BOOLEAN NOT NULL,
		artifact_path TEXT NOT NULL DEFAULT '',
		error         TEXT NOT NULL DEFAULT '',
		created_at    INTEGER NOT NULL,
		completed_at  INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at)`)
	return err
}

// Record implements ports.Recorder.
func (s *Store) Record(ctx context.Context, res domain.JobResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO jobs
		 (id, kind, model, task_id, success, artifact_path, error, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.Job.ID, string(res.Job.Kind), res.Job.Model, res.Job.TaskID,
		res.Success, res.ArtifactPath, res.ErrorMessage,
		res.Job.CreatedAt.Unix(), res.CompletedAt.Unix())
	if err != nil {
		return fmt.Errorf("record job %s: %w", res.Job.ID, err)
	}
	return nil
}

// Entry is one row of the ledger.
type Entry struct {
	ID           string
	Kind         domain.JobKind
	Model        string
	TaskID       string
	Success      bool
	ArtifactPath string
	Error        string
	CreatedAt    time.Time
	CompletedAt  time.Time
}

// List returns up to limit jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, model, task_id, success, artifact_path, error, created_at, completed_at
		 FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind string
		var created, completed int64
		if err := rows.Scan(&e.ID, &kind, &e.Model, &e.TaskID, &e.Success,
			&e.ArtifactPath, &e.Error, &created, &completed); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		e.Kind = domain.JobKind(kind)
		e.CreatedAt = time.Unix(created, 0).UTC()
		e.CompletedAt = time.Unix(completed, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

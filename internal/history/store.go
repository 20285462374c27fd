// Package history records scheduling runs in a local SQLite database so
// successive revisions of a plan can be compared.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/critpath/internal/scheduler"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// schema contains the DDL executed on first open. Using IF NOT EXISTS makes
// it safe to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id             TEXT PRIMARY KEY,
    source         TEXT NOT NULL,
    project        TEXT NOT NULL DEFAULT '',
    recorded_at    TEXT NOT NULL,
    project_start  TEXT NOT NULL,
    project_finish TEXT NOT NULL,
    finish_hours   REAL NOT NULL,
    task_count     INTEGER NOT NULL,
    critical_count INTEGER NOT NULL,
    cycle_count    INTEGER NOT NULL,
    missing_count  INTEGER NOT NULL,
    conflict_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS runs_source ON runs (source, recorded_at);

CREATE TABLE IF NOT EXISTS run_tasks (
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq         INTEGER NOT NULL,
    task_id     TEXT NOT NULL,
    es          REAL NOT NULL,
    ef          REAL NOT NULL,
    ls          REAL NOT NULL,
    lf          REAL NOT NULL,
    total_float REAL NOT NULL,
    free_float  REAL NOT NULL,
    critical    INTEGER NOT NULL,
    PRIMARY KEY (run_id, task_id)
);
`

// Run summarizes one recorded scheduling run.
type Run struct {
	ID            string
	Source        string
	Project       string
	RecordedAt    time.Time
	ProjectStart  time.Time
	ProjectFinish time.Time
	FinishHours   float64
	Tasks         int
	Critical      int
	Cycles        int
	Missing       int
	Conflicts     int
}

// TaskRecord is the stored schedule of one task in a run.
type TaskRecord struct {
	TaskID     string
	ES, EF     float64
	LS, LF     float64
	TotalFloat float64
	FreeFloat  float64
	Critical   bool
}

// Store is a run history backed by a local SQLite database in WAL mode.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, creating its directory,
// enabling WAL mode and busy timeout, and creating the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	// SQLite supports a single writer; one connection keeps PRAGMAs in effect.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records res as a new run of source and returns its summary.
func (s *Store) Save(ctx context.Context, source, project string, at time.Time, res *scheduler.Result) (Run, error) {
	run := Run{
		ID:            uuid.NewString(),
		Source:        source,
		Project:       project,
		RecordedAt:    at.UTC(),
		ProjectStart:  res.ProjectStart,
		ProjectFinish: res.ProjectFinish,
		FinishHours:   res.FinishOffset,
		Tasks:         len(res.Tasks),
		Critical:      len(res.CriticalPath()),
		Cycles:        len(res.Cycles),
		Missing:       len(res.Missing),
		Conflicts:     len(res.Conflicts()),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	const insertRun = `
		INSERT INTO runs (id, source, project, recorded_at, project_start, project_finish,
			finish_hours, task_count, critical_count, cycle_count, missing_count, conflict_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertRun,
		run.ID, run.Source, run.Project, formatTime(run.RecordedAt),
		formatTime(run.ProjectStart), formatTime(run.ProjectFinish), run.FinishHours,
		run.Tasks, run.Critical, run.Cycles, run.Missing, run.Conflicts,
	); err != nil {
		return Run{}, fmt.Errorf("history: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_tasks (run_id, seq, task_id, es, ef, ls, lf, total_float, free_float, critical)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("history: prepare task insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range res.Tasks {
		if _, err := stmt.ExecContext(ctx, run.ID, i, t.ID, t.ES, t.EF, t.LS, t.LF,
			t.TotalFloat, t.FreeFloat, t.Critical); err != nil {
			return Run{}, fmt.Errorf("history: insert task %q: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("history: commit: %w", err)
	}
	return run, nil
}

const runColumns = `id, source, project, recorded_at, project_start, project_finish,
	finish_hours, task_count, critical_count, cycle_count, missing_count, conflict_count`

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY recorded_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
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
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	return runs, nil
}

// Latest returns the most recent run of source. ok is false when source
// has no runs.
func (s *Store) Latest(ctx context.Context, source string) (run Run, ok bool, err error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE source = ? ORDER BY recorded_at DESC, rowid DESC LIMIT 1", source)
	run, err = scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

// Tasks returns the task records of a run in input order.
func (s *Store) Tasks(ctx context.Context, runID string) ([]TaskRecord, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE id = ?", runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history: %w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("history: look up run %q: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, es, ef, ls, lf, total_float, free_float, critical
		FROM run_tasks WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: run tasks %q: %w", runID, err)
	}
	defer rows.Close()

	var tasks []TaskRecord
	for rows.Next() {
		var t TaskRecord
		if err := rows.Scan(&t.TaskID, &t.ES, &t.EF, &t.LS, &t.LF, &t.TotalFloat, &t.FreeFloat, &t.Critical); err != nil {
			return nil, fmt.Errorf("history: scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: run tasks %q: %w", runID, err)
	}
	return tasks, nil
}

// Delete removes a run and its tasks.
func (s *Store) Delete(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", runID)
	if err != nil {
		return fmt.Errorf("history: delete run %q: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("history: %w: %s", ErrRunNotFound, runID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var recorded, start, finish string
	err := sc.Scan(&r.ID, &r.Source, &r.Project, &recorded, &start, &finish,
		&r.FinishHours, &r.Tasks, &r.Critical, &r.Cycles, &r.Missing, &r.Conflicts)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("history: scan run: %w", err)
	}
	if r.RecordedAt, err = parseTime(recorded); err != nil {
		return Run{}, err
	}
	if r.ProjectStart, err = parseTime(start); err != nil {
		return Run{}, err
	}
	if r.ProjectFinish, err = parseTime(finish); err != nil {
		return Run{}, err
	}
	return r, nil
}

// timeLayout has fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("history: bad timestamp %q: %w", s, err)
	}
	return t, nil
}

// Package store keeps a SQLite history of extraction runs. The history is
// diagnostics only: resume is keyed solely on the JSONL output file, so a
// lost or stale run log never affects extraction correctness.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunEntry is one row of the extract_runs table.
type RunEntry struct {
	ID         string     `json:"id"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Pages      int        `json:"pages"`
	RowsSeen   int        `json:"rows_seen"`
	NewRecords int        `json:"new_records"`
	Error      string     `json:"error,omitempty"`
}

// RunResult holds the counters recorded when a run completes.
type RunResult struct {
	Pages      int
	RowsSeen   int
	NewRecords int
}

// RunLog provides read/write access to the extract_runs table.
type RunLog struct {
	db *sql.DB
}

// Open opens (or creates) the run log database at path and configures WAL mode.
func Open(path string) (*RunLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "runlog: exec %s", pragma)
		}
	}
	return &RunLog{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS extract_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	pages       INTEGER NOT NULL DEFAULT 0,
	rows_seen   INTEGER NOT NULL DEFAULT 0,
	new_records INTEGER NOT NULL DEFAULT 0,
	error       TEXT
);

CREATE INDEX IF NOT EXISTS idx_extract_runs_started_at ON extract_runs(started_at);
`

// Migrate creates the schema if it does not exist.
func (l *RunLog) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "runlog: migrate")
}

// Close closes the database.
func (l *RunLog) Close() error {
	return l.db.Close()
}

// Start records the beginning of a run and returns its ID.
func (l *RunLog) Start(ctx context.Context) (string, error) {
	id := uuid.New().String()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO extract_runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, string(RunStatusRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "runlog: start run")
	}
	return id, nil
}

// Complete marks a run as finished with its counters.
func (l *RunLog) Complete(ctx context.Context, runID string, result RunResult) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE extract_runs
		 SET status = ?, finished_at = ?, pages = ?, rows_seen = ?, new_records = ?
		 WHERE id = ?`,
		string(RunStatusComplete), time.Now().UTC(),
		result.Pages, result.RowsSeen, result.NewRecords, runID,
	)
	return eris.Wrapf(err, "runlog: complete run %s", runID)
}

// Fail marks a run as failed with an error message.
func (l *RunLog) Fail(ctx context.Context, runID string, errMsg string) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE extract_runs SET status = ?, finished_at = ?, error = ? WHERE id = ?`,
		string(RunStatusFailed), time.Now().UTC(), errMsg, runID,
	)
	return eris.Wrapf(err, "runlog: fail run %s", runID)
}

// ListRecent returns the most recent runs, newest first.
func (l *RunLog) ListRecent(ctx context.Context, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, status, started_at, finished_at, pages, rows_seen, new_records, error
		 FROM extract_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list recent")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var status string
		var finishedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&e.ID, &status, &e.StartedAt, &finishedAt, &e.Pages, &e.RowsSeen, &e.NewRecords, &errMsg); err != nil {
			return nil, eris.Wrap(err, "runlog: scan entry")
		}
		e.Status = RunStatus(status)
		if finishedAt.Valid {
			e.FinishedAt = &finishedAt.Time
		}
		if errMsg.Valid {
			e.Error = errMsg.String
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "runlog: iterate entries")
}

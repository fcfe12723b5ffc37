package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/invoxel/invoice-pipeline/constants"
	"github.com/invoxel/invoice-pipeline/internal/validate"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id                TEXT PRIMARY KEY,
	filename          TEXT NOT NULL,
	status            TEXT NOT NULL,
	validation_status TEXT,
	extraction_method TEXT,
	error_message     TEXT,
	started_at        TIMESTAMP NOT NULL,
	finished_at       TIMESTAMP
);`

// Ledger records per-file job outcomes for the current run in an
// in-memory SQLite database. Nothing survives the process; the only
// durable output of a run is its report.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the in-memory database and its schema. A single connection
// is used so all workers see the same memory store.
func Open(logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &Ledger{db: db, logger: logger}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// JobStarted registers a file entering the pipeline.
func (l *Ledger) JobStarted(ctx context.Context, id uuid.UUID, filename string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO jobs (id, filename, status, started_at) VALUES (?, ?, ?, ?)`,
		id.String(), filename, string(constants.JobStatusRunning), time.Now().UTC())
	if err != nil {
		l.logger.Warn("ledger insert failed", "job_id", id, "error", err)
	}
	return err
}

// JobCompleted records a finished pipeline run and its validation verdict.
func (l *Ledger) JobCompleted(ctx context.Context, id uuid.UUID, rec validate.Record) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, validation_status = ?, extraction_method = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(constants.JobStatusCompleted), string(rec.Status), string(rec.ExtractionMethod),
		rec.ErrorsJoined(), time.Now().UTC(), id.String())
	if err != nil {
		l.logger.Warn("ledger update failed", "job_id", id, "error", err)
	}
	return err
}

// JobFailed records a pipeline failure; the file is absent from results.
func (l *Ledger) JobFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(constants.JobStatusFailed), errMsg, time.Now().UTC(), id.String())
	if err != nil {
		l.logger.Warn("ledger update failed", "job_id", id, "error", err)
	}
	return err
}

// Summary is the end-of-run accounting across all jobs.
type Summary struct {
	Total     int
	Completed int
	Failed    int
	Valid     int
	Invalid   int
}

// Summarize aggregates the run's job rows.
func (l *Ledger) Summarize(ctx context.Context) (Summary, error) {
	var s Summary
	err := l.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN validation_status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN validation_status = ? THEN 1 ELSE 0 END), 0)
		FROM jobs`,
		string(constants.JobStatusCompleted), string(constants.JobStatusFailed),
		string(constants.StatusValid), string(constants.StatusInvalid),
	).Scan(&s.Total, &s.Completed, &s.Failed, &s.Valid, &s.Invalid)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize run: %w", err)
	}
	return s, nil
}

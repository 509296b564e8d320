// Package history persists summaries of finished split runs to PostgreSQL.
//
// The store is optional: the server wires it up only when a database URL is
// configured, and the pipeline itself never depends on it.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sheetsplit/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS split_runs (
	id            BIGSERIAL PRIMARY KEY,
	run_id        UUID NOT NULL,
	file_name     TEXT NOT NULL,
	key_column    TEXT NOT NULL,
	archive_name  TEXT NOT NULL DEFAULT '',
	group_count   INT NOT NULL DEFAULT 0,
	total_rows    INT NOT NULL DEFAULT 0,
	rows_written  INT NOT NULL DEFAULT 0,
	unprocessed   INT NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	duration_ms   BIGINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_split_runs_created_at ON split_runs (created_at DESC);
`

// Store records finished split runs in PostgreSQL.
// It implements core.RunRecorder.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store and ensures the split_runs table exists.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// RecordRun inserts one finished run summary.
func (s *Store) RecordRun(ctx context.Context, rec core.RunRecord) error {
	const q = `
		INSERT INTO split_runs
			(run_id, file_name, key_column, archive_name, group_count,
			 total_rows, rows_written, unprocessed, status, error, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, q,
		rec.RunID,
		rec.FileName,
		rec.KeyColumn,
		rec.ArchiveName,
		rec.GroupCount,
		rec.TotalRows,
		rec.RowsWritten,
		rec.Unprocessed,
		rec.Status,
		rec.Error,
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

// Entry is one historical run as returned by Recent.
type Entry struct {
	RunID       string    `json:"runId"`
	FileName    string    `json:"fileName"`
	KeyColumn   string    `json:"keyColumn"`
	ArchiveName string    `json:"archiveName,omitempty"`
	GroupCount  int       `json:"groupCount"`
	TotalRows   int       `json:"totalRows"`
	RowsWritten int       `json:"rowsWritten"`
	Unprocessed int       `json:"unprocessed"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"durationMs"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Recent returns the most recent runs, newest first. Limit is clamped to
// [1, 200].
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	const q = `
		SELECT run_id, file_name, key_column, archive_name, group_count,
		       total_rows, rows_written, unprocessed, status, error,
		       duration_ms, created_at
		FROM split_runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.RunID, &e.FileName, &e.KeyColumn, &e.ArchiveName, &e.GroupCount,
			&e.TotalRows, &e.RowsWritten, &e.Unprocessed, &e.Status, &e.Error,
			&e.DurationMS, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run history: %w", err)
	}
	return entries, nil
}

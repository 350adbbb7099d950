package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jjenkins/althingi/internal/model"
	"github.com/lib/pq"
)

const defaultRunLimit = 50

// RecordRun stores the stats of a finished stage run. A run without an id
// is given one.
func (s *Store) RecordRun(ctx context.Context, run *model.RunStats) error {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}

	query := `
		INSERT INTO ingest_runs (run_id, stage, session, total, created, updated, unchanged,
		                         skipped, failed, missing, not_found, notes, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (run_id) DO UPDATE SET
			total = EXCLUDED.total,
			created = EXCLUDED.created,
			updated = EXCLUDED.updated,
			unchanged = EXCLUDED.unchanged,
			skipped = EXCLUDED.skipped,
			failed = EXCLUDED.failed,
			missing = EXCLUDED.missing,
			not_found = EXCLUDED.not_found,
			notes = EXCLUDED.notes,
			finished_at = EXCLUDED.finished_at
	`

	notes := run.Notes
	if notes == nil {
		notes = []string{}
	}
	_, err := s.db.ExecContext(ctx, query,
		run.RunID,
		run.Stage,
		run.Session,
		run.Total,
		run.Created,
		run.Updated,
		run.Unchanged,
		run.Skipped,
		run.Failed,
		run.Missing,
		run.NotFound,
		pq.Array(notes),
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}
	return nil
}

// ListRuns retrieves the most recent runs, newest first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.RunStats, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}

	query := `
		SELECT run_id, stage, session, total, created, updated, unchanged, skipped,
		       failed, missing, not_found, notes, started_at, finished_at
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunStats
	for rows.Next() {
		var r model.RunStats
		err := rows.Scan(
			&r.RunID,
			&r.Stage,
			&r.Session,
			&r.Total,
			&r.Created,
			&r.Updated,
			&r.Unchanged,
			&r.Skipped,
			&r.Failed,
			&r.Missing,
			&r.NotFound,
			pq.Array(&r.Notes),
			&r.StartedAt,
			&r.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

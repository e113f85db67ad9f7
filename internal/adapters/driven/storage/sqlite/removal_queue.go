package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
)

// removalQueue implements driven.RemovalQueue. Vector IDs are stored as
// a JSON array in a text column; jobs are small and short-lived so a
// join table would be overkill.
type removalQueue struct {
	store *Store
}

var _ driven.RemovalQueue = (*removalQueue)(nil)

// Enqueue persists a removal job and assigns its ID.
func (q *removalQueue) Enqueue(ctx context.Context, job *domain.RemovalJob) error {
	if job == nil {
		return domain.ErrInvalidInput
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	encoded, err := json.Marshal(job.VectorIDs)
	if err != nil {
		return fmt.Errorf("encoding vector ids: %w", err)
	}

	res, err := q.store.db.ExecContext(ctx, `
		INSERT INTO removal_queue (file_id, filename, vector_ids, attempts, enqueued_at)
		VALUES (?, ?, ?, ?, ?)
	`, job.FileID, job.Filename, string(encoded), job.Attempts, job.EnqueuedAt)
	if err != nil {
		return fmt.Errorf("enqueueing removal job: %w", err)
	}

	job.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting job id: %w", err)
	}
	return nil
}

// Pending returns up to limit jobs, oldest first, incrementing their
// attempt counters so stuck jobs are visible in the logs.
func (q *removalQueue) Pending(ctx context.Context, limit int) ([]domain.RemovalJob, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := q.store.db.QueryContext(ctx, `
		SELECT id, file_id, filename, vector_ids, attempts, enqueued_at
		FROM removal_queue ORDER BY id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying removal queue: %w", err)
	}
	defer rows.Close()

	var jobs []domain.RemovalJob
	for rows.Next() {
		var job domain.RemovalJob
		var encoded string
		if err := rows.Scan(&job.ID, &job.FileID, &job.Filename, &encoded, &job.Attempts, &job.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("scanning removal job: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &job.VectorIDs); err != nil {
			return nil, fmt.Errorf("decoding vector ids for job %d: %w", job.ID, err)
		}
		job.Attempts++
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating removal queue: %w", err)
	}

	for i := range jobs {
		if _, err := q.store.db.ExecContext(ctx,
			"UPDATE removal_queue SET attempts = attempts + 1 WHERE id = ?", jobs[i].ID); err != nil {
			return nil, fmt.Errorf("incrementing attempts for job %d: %w", jobs[i].ID, err)
		}
	}

	return jobs, nil
}

// MarkDone removes a completed job.
func (q *removalQueue) MarkDone(ctx context.Context, jobID int64) error {
	_, err := q.store.db.ExecContext(ctx, "DELETE FROM removal_queue WHERE id = ?", jobID)
	if err != nil {
		return fmt.Errorf("marking job done: %w", err)
	}
	return nil
}

package driven

import (
	"context"

	"github.com/notelm/notelm/internal/core/domain"
)

// RemovalQueue is a durable outbox for deferred vector cleanup.
// Phase one of file deletion enqueues a job; a janitor loop drains the
// queue with at-least-once semantics.
type RemovalQueue interface {
	// Enqueue persists a removal job.
	Enqueue(ctx context.Context, job *domain.RemovalJob) error

	// Pending returns up to limit jobs, oldest first, incrementing
	// their attempt counters.
	Pending(ctx context.Context, limit int) ([]domain.RemovalJob, error)

	// MarkDone removes a completed job.
	MarkDone(ctx context.Context, jobID int64) error
}

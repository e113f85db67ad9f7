package memory

import (
	"context"
	"sync"
	"time"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
)

// Ensure RemovalQueue implements the interface.
var _ driven.RemovalQueue = (*RemovalQueue)(nil)

// RemovalQueue is an in-memory implementation of driven.RemovalQueue for
// testing. Jobs survive only for the process lifetime.
type RemovalQueue struct {
	mu     sync.Mutex
	nextID int64
	jobs   []domain.RemovalJob
}

// NewRemovalQueue creates a new in-memory removal queue.
func NewRemovalQueue() *RemovalQueue {
	return &RemovalQueue{nextID: 1}
}

// Enqueue persists a removal job and assigns its ID.
func (q *RemovalQueue) Enqueue(_ context.Context, job *domain.RemovalJob) error {
	if job == nil {
		return domain.ErrInvalidInput
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	job.ID = q.nextID
	q.nextID++
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	stored := *job
	stored.VectorIDs = append([]int64(nil), job.VectorIDs...)
	q.jobs = append(q.jobs, stored)
	return nil
}

// Pending returns up to limit jobs, oldest first, incrementing attempts.
func (q *RemovalQueue) Pending(_ context.Context, limit int) ([]domain.RemovalJob, error) {
	if limit <= 0 {
		limit = 10
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	n := limit
	if n > len(q.jobs) {
		n = len(q.jobs)
	}
	out := make([]domain.RemovalJob, 0, n)
	for i := 0; i < n; i++ {
		q.jobs[i].Attempts++
		job := q.jobs[i]
		job.VectorIDs = append([]int64(nil), q.jobs[i].VectorIDs...)
		out = append(out, job)
	}
	return out, nil
}

// MarkDone removes a completed job.
func (q *RemovalQueue) MarkDone(_ context.Context, jobID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, job := range q.jobs {
		if job.ID == jobID {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			return nil
		}
	}
	return nil
}

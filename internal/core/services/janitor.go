package services

import (
	"context"
	"sync"
	"time"

	"github.com/notelm/notelm/internal/core/ports/driven"
	"github.com/notelm/notelm/internal/logger"
)

// Janitor default tuning.
const (
	DefaultJanitorInterval = 30 * time.Second
	DefaultJanitorBatch    = 10
)

// Janitor drains the removal queue: phase two of file deletion. Jobs
// are processed at least once; vector removal is idempotent, so a
// replay after a crash or a failed MarkDone is harmless.
type Janitor struct {
	queue   driven.RemovalQueue
	vectors driven.VectorStore

	interval time.Duration
	batch    int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// JanitorOption configures the janitor.
type JanitorOption func(*Janitor)

// WithJanitorInterval sets the polling interval.
func WithJanitorInterval(d time.Duration) JanitorOption {
	return func(j *Janitor) {
		if d > 0 {
			j.interval = d
		}
	}
}

// WithJanitorBatch sets how many jobs one sweep picks up.
func WithJanitorBatch(n int) JanitorOption {
	return func(j *Janitor) {
		if n > 0 {
			j.batch = n
		}
	}
}

// NewJanitor creates a janitor over the queue and index.
func NewJanitor(queue driven.RemovalQueue, vectors driven.VectorStore, opts ...JanitorOption) *Janitor {
	j := &Janitor{
		queue:    queue,
		vectors:  vectors,
		interval: DefaultJanitorInterval,
		batch:    DefaultJanitorBatch,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start launches the sweep loop in the background. Calling Start on a
// running janitor is a no-op.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.mu.Unlock()

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-j.stopCh:
				return
			case <-ticker.C:
				if err := j.Sweep(ctx); err != nil {
					logger.Warn("janitor sweep: %v", err)
				}
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	close(j.stopCh)
	j.mu.Unlock()

	j.wg.Wait()
}

// Sweep processes one batch of pending jobs. A job that fails stays in
// the queue for the next sweep; only the index persist gates MarkDone.
func (j *Janitor) Sweep(ctx context.Context) error {
	jobs, err := j.queue.Pending(ctx, j.batch)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	for _, job := range jobs {
		removed, err := j.vectors.Remove(ctx, job.VectorIDs)
		if err != nil {
			logger.Warn("janitor: removing vectors for %s (attempt %d): %v", job.Filename, job.Attempts, err)
			continue
		}

		// Persist before forgetting the job, or a crash would lose the
		// removals while the queue thinks they happened.
		if err := j.vectors.Persist(ctx); err != nil {
			logger.Warn("janitor: persisting index after %s: %v", job.Filename, err)
			continue
		}
		if err := j.queue.MarkDone(ctx, job.ID); err != nil {
			logger.Warn("janitor: marking job %d done: %v", job.ID, err)
			continue
		}
		logger.Debug("janitor: removed %d vectors for %s", removed, job.Filename)
	}

	return nil
}

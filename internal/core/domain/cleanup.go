package domain

import "time"

// RemovalJob is a pending phase-two cleanup: vector IDs whose chunks
// were already deleted and that must still be removed from the vector
// index. Jobs are durable and replayed at least once; vector removal is
// idempotent, so replay after a crash is safe.
type RemovalJob struct {
	// ID is assigned by the queue on enqueue.
	ID int64

	// FileID identifies the deleted file, for logging only.
	FileID string

	// Filename is kept for log readability after the File row is gone.
	Filename string

	// VectorIDs are the index entries to remove.
	VectorIDs []int64

	// Attempts counts how many times a worker has picked this job up.
	Attempts int

	// EnqueuedAt is when phase one committed the job.
	EnqueuedAt time.Time
}

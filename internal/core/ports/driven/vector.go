package driven

import "context"

// VectorStore owns a persistent similarity index over fixed-dimension
// vectors. It allocates monotonically increasing int64 IDs that are
// never reused, even across removals and restarts, so a chunk's vector
// ID can never silently refer to a different vector.
//
// Stored vectors are L2-normalised so inner-product search realises
// cosine similarity. Each call is one critical section; implementations
// serialise add/search/remove/persist behind a single lock.
type VectorStore interface {
	// Add normalises each vector, assigns contiguous IDs from the
	// current counter and inserts under those IDs. Returns the IDs in
	// input order. Fails with domain.ErrDimensionMismatch when any
	// vector's length differs from the configured dimension.
	Add(ctx context.Context, vectors [][]float32) ([]int64, error)

	// Search returns up to k nearest vector IDs by cosine similarity,
	// ordered descending by score. An empty index yields an empty
	// result, not an error.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Remove deletes the given IDs if present. Absent IDs are silently
	// ignored; the count actually removed is returned. Removed IDs are
	// never reclaimed.
	Remove(ctx context.Context, ids []int64) (int, error)

	// Persist durably writes the index and its metadata record. The
	// persisted counter is the next ID to allocate, not the live count,
	// so no-reuse survives restarts.
	Persist(ctx context.Context) error

	// Dimensions returns the configured vector dimension.
	Dimensions() int

	// Len returns the number of live vectors.
	Len() int

	// Close persists and releases the store.
	Close() error
}

// VectorHit is one similarity search result.
type VectorHit struct {
	// ID is the matched vector ID.
	ID int64

	// Score is the cosine similarity (1.0 for an identical vector).
	Score float32
}

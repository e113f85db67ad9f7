package driven

import "context"

// BlobStore persists original uploaded bytes keyed by a path.
// Failures to delete are logged by callers, never fatal to the
// surrounding operation.
type BlobStore interface {
	// Put uploads the file at localPath under key and returns the
	// stored path.
	Put(ctx context.Context, localPath, key string) (string, error)

	// Delete removes a previously stored object.
	Delete(ctx context.Context, storedPath string) error
}

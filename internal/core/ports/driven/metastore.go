package driven

import (
	"context"

	"github.com/notelm/notelm/internal/core/domain"
)

// FileStore persists File records keyed by their string IDs.
type FileStore interface {
	// SaveFile inserts or updates a file record.
	SaveFile(ctx context.Context, file *domain.File) error

	// GetFile retrieves a file by ID. Returns domain.ErrNotFound when
	// absent.
	GetFile(ctx context.Context, id string) (*domain.File, error)

	// ListFiles returns all files, newest first.
	ListFiles(ctx context.Context) ([]domain.File, error)

	// UpdateStatus transitions a file's lifecycle state. The error
	// message is stored only for domain.StatusFailed.
	UpdateStatus(ctx context.Context, id string, status domain.FileStatus, errMsg string) error

	// MarkIndexed records the terminal success state along with page
	// and chunk counts.
	MarkIndexed(ctx context.Context, id string, totalPages, chunkCount int) error

	// DeleteFile removes the file record.
	DeleteFile(ctx context.Context, id string) error
}

// FilePurger runs phase one of file deletion as a single atomic unit:
// delete the file's chunk records and File row, and durably enqueue a
// RemovalJob for the vectors they referenced. Either all of it commits
// or none of it does, so a crash can never leave chunks pointing at
// vectors the janitor has already removed.
type FilePurger interface {
	// PurgeFile returns the enqueued job and the number of chunks
	// deleted. domain.ErrNotFound when the file does not exist.
	PurgeFile(ctx context.Context, fileID string) (*domain.RemovalJob, int, error)
}

// ChunkStore persists Chunk records and their vector ID mapping.
type ChunkStore interface {
	// SaveChunks stores all chunks for a file as one batched write.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetByVectorIDs resolves chunks by their vector IDs. IDs with no
	// chunk are simply absent from the result.
	GetByVectorIDs(ctx context.Context, ids []int64) ([]domain.Chunk, error)

	// ListByFile returns all chunks belonging to a file.
	ListByFile(ctx context.Context, fileID string) ([]domain.Chunk, error)

	// CountByFile returns the number of chunks belonging to a file.
	CountByFile(ctx context.Context, fileID string) (int, error)

	// DeleteByFile removes every chunk belonging to a file and returns
	// the count deleted.
	DeleteByFile(ctx context.Context, fileID string) (int, error)
}

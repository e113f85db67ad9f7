package driving

import (
	"context"

	"github.com/notelm/notelm/internal/core/domain"
)

// IngestRequest describes one staged upload awaiting ingestion.
type IngestRequest struct {
	// LocalPath is the staged copy of the uploaded bytes. The pipeline
	// removes it when ingestion finishes, on success and failure alike.
	LocalPath string

	// Filename is the original upload name; its extension declares the
	// format.
	Filename string

	// Size is the upload size in bytes.
	Size int64
}

// IngestService runs the ingestion pipeline.
type IngestService interface {
	// Ingest processes one file synchronously and returns its terminal
	// record. Per-file failures are recorded on the File and returned
	// as a nil error at this level only for batch callers; the single
	// variant returns the pipeline error as well.
	Ingest(ctx context.Context, req IngestRequest) (*domain.File, error)

	// IngestAsync registers the file and schedules processing in the
	// background. The returned record is in domain.StatusProcessing;
	// completion is observed by polling file status.
	IngestAsync(ctx context.Context, req IngestRequest) (*domain.File, error)

	// IngestBatch processes several files concurrently and
	// independently. One file's failure never affects its siblings.
	IngestBatch(ctx context.Context, reqs []IngestRequest) []BatchResult

	// Wait blocks until all background ingestions have finished.
	Wait()
}

// BatchResult reports the outcome of one file within a batch.
type BatchResult struct {
	File *domain.File
	Err  error
}

// LibraryService reads and deletes files outside the pipeline.
type LibraryService interface {
	// GetFile returns the file record with its current chunk count.
	GetFile(ctx context.Context, id string) (*domain.File, error)

	// ListFiles returns all files, newest first.
	ListFiles(ctx context.Context) ([]domain.File, error)

	// DeleteFile runs phase one of the two-phase delete: metadata goes
	// now, vector cleanup is enqueued for the janitor. Returns the
	// number of chunks deleted.
	DeleteFile(ctx context.Context, id string) (int, error)
}

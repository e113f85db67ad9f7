package services

import (
	"context"
	"fmt"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
	"github.com/notelm/notelm/internal/core/ports/driving"
	"github.com/notelm/notelm/internal/logger"
)

// Ensure LibraryService implements the interface.
var _ driving.LibraryService = (*LibraryService)(nil)

// LibraryService reads and deletes files outside the pipeline.
type LibraryService struct {
	files  driven.FileStore
	purger driven.FilePurger
	blobs  driven.BlobStore
}

// NewLibraryService creates a library service. The blob store may be
// nil when originals are not retained.
func NewLibraryService(files driven.FileStore, purger driven.FilePurger, blobs driven.BlobStore) *LibraryService {
	return &LibraryService{
		files:  files,
		purger: purger,
		blobs:  blobs,
	}
}

// GetFile returns the file record.
func (s *LibraryService) GetFile(ctx context.Context, id string) (*domain.File, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.files.GetFile(ctx, id)
}

// ListFiles returns all files, newest first.
func (s *LibraryService) ListFiles(ctx context.Context) ([]domain.File, error) {
	return s.files.ListFiles(ctx)
}

// DeleteFile runs phase one of the two-phase delete: chunks and the
// file record go now, in one transaction that also enqueues the vector
// removal job for the janitor. The stored original is deleted best
// effort; a blob failure never blocks the metadata delete.
func (s *LibraryService) DeleteFile(ctx context.Context, id string) (int, error) {
	if id == "" {
		return 0, domain.ErrInvalidInput
	}

	file, err := s.files.GetFile(ctx, id)
	if err != nil {
		return 0, err
	}

	job, deleted, err := s.purger.PurgeFile(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("purging file: %w", err)
	}
	logger.Info("deleted %s: %d chunks, %d vectors queued for removal",
		file.Filename, deleted, len(job.VectorIDs))

	if s.blobs != nil && file.StoredPath != "" {
		if err := s.blobs.Delete(ctx, file.StoredPath); err != nil {
			logger.Warn("deleting stored original %s: %v", file.StoredPath, err)
		}
	}

	return deleted, nil
}

package memory

import (
	"context"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
)

// Ensure Purger implements the interface.
var _ driven.FilePurger = (*Purger)(nil)

// Purger composes the in-memory stores into a driven.FilePurger. It is
// not atomic the way the SQLite implementation is; tests that need
// crash-window behaviour exercise the real store instead.
type Purger struct {
	Files  *FileStore
	Chunks *ChunkStore
	Queue  *RemovalQueue
}

// NewPurger creates a purger over the given in-memory stores.
func NewPurger(files *FileStore, chunks *ChunkStore, queue *RemovalQueue) *Purger {
	return &Purger{Files: files, Chunks: chunks, Queue: queue}
}

// PurgeFile deletes the file's chunks and record and enqueues a removal
// job for its vectors.
func (p *Purger) PurgeFile(ctx context.Context, fileID string) (*domain.RemovalJob, int, error) {
	file, err := p.Files.GetFile(ctx, fileID)
	if err != nil {
		return nil, 0, err
	}

	chunks, err := p.Chunks.ListByFile(ctx, fileID)
	if err != nil {
		return nil, 0, err
	}
	vectorIDs := make([]int64, 0, len(chunks))
	for _, chunk := range chunks {
		vectorIDs = append(vectorIDs, chunk.VectorID)
	}

	deleted, err := p.Chunks.DeleteByFile(ctx, fileID)
	if err != nil {
		return nil, 0, err
	}
	if err := p.Files.DeleteFile(ctx, fileID); err != nil {
		return nil, 0, err
	}

	job := &domain.RemovalJob{
		FileID:    fileID,
		Filename:  file.Filename,
		VectorIDs: vectorIDs,
	}
	if len(vectorIDs) > 0 {
		if err := p.Queue.Enqueue(ctx, job); err != nil {
			return nil, 0, err
		}
	}
	return job, deleted, nil
}

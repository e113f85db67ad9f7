package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore for testing.
type ChunkStore struct {
	mu       sync.RWMutex
	byVector map[int64]domain.Chunk
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		byVector: make(map[int64]domain.Chunk),
	}
}

// SaveChunks stores all chunks for a file as one batch.
func (s *ChunkStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		if _, exists := s.byVector[chunk.VectorID]; exists {
			return domain.ErrInvalidInput
		}
	}
	now := time.Now().UTC()
	for _, chunk := range chunks {
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}
		s.byVector[chunk.VectorID] = chunk
	}
	return nil
}

// GetByVectorIDs resolves chunks by their vector IDs, skipping unknowns.
func (s *ChunkStore) GetByVectorIDs(_ context.Context, ids []int64) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var chunks []domain.Chunk
	for _, id := range ids {
		if chunk, ok := s.byVector[id]; ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

// ListByFile returns all chunks belonging to a file, in vector ID order.
func (s *ChunkStore) ListByFile(_ context.Context, fileID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var chunks []domain.Chunk
	for _, chunk := range s.byVector {
		if chunk.FileID == fileID {
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].VectorID < chunks[j].VectorID
	})
	return chunks, nil
}

// CountByFile returns the number of chunks belonging to a file.
func (s *ChunkStore) CountByFile(_ context.Context, fileID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, chunk := range s.byVector {
		if chunk.FileID == fileID {
			count++
		}
	}
	return count, nil
}

// DeleteByFile removes every chunk belonging to a file.
func (s *ChunkStore) DeleteByFile(_ context.Context, fileID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, chunk := range s.byVector {
		if chunk.FileID == fileID {
			delete(s.byVector, id)
			count++
		}
	}
	return count, nil
}

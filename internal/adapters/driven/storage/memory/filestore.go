// Package memory provides in-memory implementations of the metadata
// store ports for testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
)

// Ensure FileStore implements the interface.
var _ driven.FileStore = (*FileStore)(nil)

// FileStore is an in-memory implementation of driven.FileStore for testing.
type FileStore struct {
	mu    sync.RWMutex
	files map[string]domain.File
}

// NewFileStore creates a new in-memory file store.
func NewFileStore() *FileStore {
	return &FileStore{
		files: make(map[string]domain.File),
	}
}

// SaveFile inserts or updates a file record.
func (s *FileStore) SaveFile(_ context.Context, file *domain.File) error {
	if file == nil || file.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	s.files[file.ID] = *file
	return nil
}

// GetFile retrieves a file by ID.
func (s *FileStore) GetFile(_ context.Context, id string) (*domain.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	file, ok := s.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &file, nil
}

// ListFiles returns all files, newest first.
func (s *FileStore) ListFiles(_ context.Context) ([]domain.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := make([]domain.File, 0, len(s.files))
	for _, file := range s.files {
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].CreatedAt.After(files[j].CreatedAt)
		}
		return files[i].ID > files[j].ID
	})
	return files, nil
}

// UpdateStatus transitions a file's lifecycle state.
func (s *FileStore) UpdateStatus(_ context.Context, id string, status domain.FileStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[id]
	if !ok {
		return domain.ErrNotFound
	}
	file.Status = status
	if status == domain.StatusFailed {
		file.Error = errMsg
	} else {
		file.Error = ""
	}
	s.files[id] = file
	return nil
}

// MarkIndexed records the terminal success state with counts.
func (s *FileStore) MarkIndexed(_ context.Context, id string, totalPages, chunkCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[id]
	if !ok {
		return domain.ErrNotFound
	}
	file.Status = domain.StatusIndexed
	file.TotalPages = totalPages
	file.ChunkCount = chunkCount
	file.Error = ""
	s.files[id] = file
	return nil
}

// DeleteFile removes the file record.
func (s *FileStore) DeleteFile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, id)
	return nil
}

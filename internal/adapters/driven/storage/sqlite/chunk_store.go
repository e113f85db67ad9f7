package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
)

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// SaveChunks stores all chunks for a file in one transaction.
func (s *chunkStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, file_id, title, content, page_start, page_end, vector_id, embedding_dim, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range chunks {
		chunk := &chunks[i]
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}
		_, err := stmt.ExecContext(ctx, chunk.ID, chunk.FileID, nullString(chunk.Title),
			chunk.Content, chunk.PageStart, chunk.PageEnd, chunk.VectorID,
			chunk.EmbeddingDim, chunk.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// GetByVectorIDs resolves chunks by their vector IDs. IDs without a
// chunk are silently absent from the result.
func (s *chunkStore) GetByVectorIDs(ctx context.Context, ids []int64) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.store.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, file_id, title, content, page_start, page_end, vector_id, embedding_dim, created_at
		FROM chunks WHERE vector_id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks by vector id: %w", err)
	}
	defer rows.Close()

	return collectChunks(rows)
}

// ListByFile returns all chunks belonging to a file, in vector ID order.
func (s *chunkStore) ListByFile(ctx context.Context, fileID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, file_id, title, content, page_start, page_end, vector_id, embedding_dim, created_at
		FROM chunks WHERE file_id = ? ORDER BY vector_id
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks by file: %w", err)
	}
	defer rows.Close()

	return collectChunks(rows)
}

// CountByFile returns the number of chunks belonging to a file.
func (s *chunkStore) CountByFile(ctx context.Context, fileID string) (int, error) {
	var count int
	row := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE file_id = ?", fileID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// DeleteByFile removes every chunk belonging to a file.
func (s *chunkStore) DeleteByFile(ctx context.Context, fileID string) (int, error) {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE file_id = ?", fileID)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted chunks: %w", err)
	}
	return int(n), nil
}

func collectChunks(rows rowIterator) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// rowIterator is the subset of sql.Rows used by collectChunks, so the
// same scan loop works inside and outside transactions.
type rowIterator interface {
	Next() bool
	Err() error
	Scan(dest ...any) error
}

func scanChunk(sc scanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var title sql.NullString
	err := sc.Scan(&chunk.ID, &chunk.FileID, &title, &chunk.Content,
		&chunk.PageStart, &chunk.PageEnd, &chunk.VectorID, &chunk.EmbeddingDim, &chunk.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	chunk.Title = title.String
	return &chunk, nil
}

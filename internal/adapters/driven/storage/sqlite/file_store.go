package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
)

// fileStore implements driven.FileStore.
type fileStore struct {
	store *Store
}

var _ driven.FileStore = (*fileStore)(nil)

// SaveFile inserts or updates a file record.
func (s *fileStore) SaveFile(ctx context.Context, file *domain.File) error {
	if file == nil || file.ID == "" {
		return domain.ErrInvalidInput
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO files (id, filename, file_type, size, status, total_pages, chunk_count, error, stored_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			file_type = excluded.file_type,
			size = excluded.size,
			status = excluded.status,
			total_pages = excluded.total_pages,
			chunk_count = excluded.chunk_count,
			error = excluded.error,
			stored_path = excluded.stored_path
	`, file.ID, file.Filename, string(file.Type), file.Size, string(file.Status),
		file.TotalPages, file.ChunkCount, nullString(file.Error),
		nullString(file.StoredPath), file.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving file: %w", err)
	}
	return nil
}

// GetFile retrieves a file by ID.
func (s *fileStore) GetFile(ctx context.Context, id string) (*domain.File, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, filename, file_type, size, status, total_pages, chunk_count, error, stored_path, created_at
		FROM files WHERE id = ?
	`, id)
	return scanFile(row)
}

// ListFiles returns all files, newest first.
func (s *fileStore) ListFiles(ctx context.Context) ([]domain.File, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, filename, file_type, size, status, total_pages, chunk_count, error, stored_path, created_at
		FROM files ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var files []domain.File //nolint:prealloc // size unknown from query
	for rows.Next() {
		file, err := scanFileRows(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}
	return files, nil
}

// UpdateStatus transitions a file's lifecycle state.
func (s *fileStore) UpdateStatus(ctx context.Context, id string, status domain.FileStatus, errMsg string) error {
	if status != domain.StatusFailed {
		errMsg = ""
	}
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE files SET status = ?, error = ? WHERE id = ?
	`, string(status), nullString(errMsg), id)
	if err != nil {
		return fmt.Errorf("updating file status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkIndexed records the terminal success state with counts.
func (s *fileStore) MarkIndexed(ctx context.Context, id string, totalPages, chunkCount int) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE files SET status = ?, total_pages = ?, chunk_count = ?, error = NULL WHERE id = ?
	`, string(domain.StatusIndexed), totalPages, chunkCount, id)
	if err != nil {
		return fmt.Errorf("marking file indexed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteFile removes the file record.
func (s *fileStore) DeleteFile(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row *sql.Row) (*domain.File, error) {
	file, err := scanFileFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return file, err
}

func scanFileRows(rows *sql.Rows) (*domain.File, error) {
	return scanFileFrom(rows)
}

func scanFileFrom(sc scanner) (*domain.File, error) {
	var file domain.File
	var fileType, status string
	var errMsg, storedPath sql.NullString
	var createdAt sql.NullTime

	err := sc.Scan(&file.ID, &file.Filename, &fileType, &file.Size, &status,
		&file.TotalPages, &file.ChunkCount, &errMsg, &storedPath, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning file: %w", err)
	}

	file.Type = domain.FileType(fileType)
	file.Status = domain.FileStatus(status)
	file.Error = errMsg.String
	file.StoredPath = storedPath.String
	if createdAt.Valid {
		file.CreatedAt = createdAt.Time
	}
	return &file, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
)

var _ driven.FilePurger = (*Store)(nil)

// PurgeFile runs phase one of file deletion in a single transaction:
// collect the file's vector IDs, delete its chunks and File row, and
// enqueue a RemovalJob for the vectors. A crash between the commit and
// the janitor's index cleanup leaves only orphaned vectors behind, and
// those are unreachable because their chunk rows are already gone.
func (s *Store) PurgeFile(ctx context.Context, fileID string) (*domain.RemovalJob, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var filename string
	row := tx.QueryRowContext(ctx, "SELECT filename FROM files WHERE id = ?", fileID)
	if err := row.Scan(&filename); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("looking up file: %w", err)
	}

	rows, err := tx.QueryContext(ctx, "SELECT vector_id FROM chunks WHERE file_id = ?", fileID)
	if err != nil {
		return nil, 0, fmt.Errorf("querying vector ids: %w", err)
	}
	var vectorIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scanning vector id: %w", err)
		}
		vectorIDs = append(vectorIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, fmt.Errorf("iterating vector ids: %w", err)
	}
	rows.Close()

	res, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE file_id = ?", fileID)
	if err != nil {
		return nil, 0, fmt.Errorf("deleting chunks: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return nil, 0, fmt.Errorf("counting deleted chunks: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE id = ?", fileID); err != nil {
		return nil, 0, fmt.Errorf("deleting file: %w", err)
	}

	job := &domain.RemovalJob{
		FileID:     fileID,
		Filename:   filename,
		VectorIDs:  vectorIDs,
		EnqueuedAt: time.Now().UTC(),
	}

	// Files that never reached indexed have no vectors; deleting them
	// needs no phase two.
	if len(vectorIDs) > 0 {
		encoded, err := json.Marshal(job.VectorIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("encoding vector ids: %w", err)
		}
		insRes, err := tx.ExecContext(ctx, `
			INSERT INTO removal_queue (file_id, filename, vector_ids, attempts, enqueued_at)
			VALUES (?, ?, ?, 0, ?)
		`, job.FileID, job.Filename, string(encoded), job.EnqueuedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("enqueueing removal job: %w", err)
		}
		job.ID, err = insRes.LastInsertId()
		if err != nil {
			return nil, 0, fmt.Errorf("getting job id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("committing purge: %w", err)
	}
	return job, int(deleted), nil
}

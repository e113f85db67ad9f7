// Package watch feeds files dropped into a folder through the ingestion
// pipeline. Files are picked up once their size stops changing, copied
// into the staging area and removed from the drop folder on success.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driving"
	"github.com/notelm/notelm/internal/logger"
)

// settlePollInterval is how often a candidate file's size is re-checked
// until it stops growing. Drops are often slow copies, not atomic moves.
const settlePollInterval = 500 * time.Millisecond

// settleChecks is how many consecutive stable size reads count as done.
const settleChecks = 2

// Watcher ingests files appearing in a drop folder.
type Watcher struct {
	dir        string
	stagingDir string
	ingest     driving.IngestService
}

// NewWatcher creates a watcher over dir. Staged copies go through
// stagingDir so the pipeline's cleanup semantics stay uniform.
func NewWatcher(dir, stagingDir string, ingest driving.IngestService) *Watcher {
	return &Watcher{
		dir:        dir,
		stagingDir: stagingDir,
		ingest:     ingest,
	}
}

// Run watches until the context is cancelled. Files already present at
// startup are ingested first.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0700); err != nil {
		return fmt.Errorf("creating drop folder: %w", err)
	}

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer notifier.Close()

	if err := notifier.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	logger.Info("watching %s for new documents", w.dir)

	w.sweepExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				w.maybeIngest(ctx, event.Name)
			}
		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: %v", err)
		}
	}
}

// sweepExisting ingests files that were dropped while nothing watched.
func (w *Watcher) sweepExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warn("watcher: reading drop folder: %v", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.maybeIngest(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

// maybeIngest stages and ingests one dropped file if it is a supported
// format and has finished being written.
func (w *Watcher) maybeIngest(ctx context.Context, path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if _, err := domain.FileTypeFromExtension(ext); err != nil {
		logger.Debug("watcher: skipping %s: unsupported format", name)
		return
	}

	size, err := w.waitSettled(ctx, path)
	if err != nil {
		logger.Debug("watcher: skipping %s: %v", name, err)
		return
	}

	staged, err := w.stage(path)
	if err != nil {
		logger.Warn("watcher: staging %s: %v", name, err)
		return
	}

	if _, err := w.ingest.IngestAsync(ctx, driving.IngestRequest{
		LocalPath: staged,
		Filename:  name,
		Size:      size,
	}); err != nil {
		logger.Warn("watcher: ingesting %s: %v", name, err)
		return
	}

	// The drop copy is consumed; the pipeline owns the staged copy now.
	if err := os.Remove(path); err != nil {
		logger.Warn("watcher: removing %s from drop folder: %v", name, err)
	}
}

// waitSettled polls until the file size holds steady, returning the
// final size. The file may vanish mid-copy (editors write temp files).
func (w *Watcher) waitSettled(ctx context.Context, path string) (int64, error) {
	var lastSize int64 = -1
	stable := 0

	for {
		info, err := os.Stat(path)
		if err != nil {
			return 0, err
		}
		if info.Size() == lastSize {
			stable++
			if stable >= settleChecks {
				return info.Size(), nil
			}
		} else {
			stable = 0
			lastSize = info.Size()
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(settlePollInterval):
		}
	}
}

// stage copies the dropped file into the staging directory.
func (w *Watcher) stage(path string) (string, error) {
	if err := os.MkdirAll(w.stagingDir, 0700); err != nil {
		return "", err
	}

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	staged := filepath.Join(w.stagingDir, uuid.New().String()+filepath.Ext(path))
	dst, err := os.Create(staged)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(staged)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(staged)
		return "", err
	}
	return staged, nil
}

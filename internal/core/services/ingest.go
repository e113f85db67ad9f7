package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/notelm/notelm/internal/chunker"
	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
	"github.com/notelm/notelm/internal/core/ports/driving"
	"github.com/notelm/notelm/internal/extract"
	"github.com/notelm/notelm/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// DefaultMaxConcurrent bounds parallel file ingestions in a batch.
const DefaultMaxConcurrent = 3

// IngestService runs uploads through the pipeline:
// uploaded -> processing -> indexed | failed.
type IngestService struct {
	files     driven.FileStore
	chunks    driven.ChunkStore
	vectors   driven.VectorStore
	embedder  driven.EmbeddingService
	blobs     driven.BlobStore
	queue     driven.RemovalQueue
	extractor *extract.Extractor
	chunker   *chunker.Chunker

	maxConcurrent int
	wg            sync.WaitGroup
}

// IngestOption configures the service.
type IngestOption func(*IngestService)

// WithMaxConcurrent sets the batch parallelism bound.
func WithMaxConcurrent(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// WithChunker overrides the default chunker.
func WithChunker(c *chunker.Chunker) IngestOption {
	return func(s *IngestService) {
		s.chunker = c
	}
}

// NewIngestService creates the pipeline service. The blob store may be
// nil, in which case originals are not retained.
func NewIngestService(
	files driven.FileStore,
	chunks driven.ChunkStore,
	vectors driven.VectorStore,
	embedder driven.EmbeddingService,
	blobs driven.BlobStore,
	queue driven.RemovalQueue,
	extractor *extract.Extractor,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		files:         files,
		chunks:        chunks,
		vectors:       vectors,
		embedder:      embedder,
		blobs:         blobs,
		queue:         queue,
		extractor:     extractor,
		chunker:       chunker.New(),
		maxConcurrent: DefaultMaxConcurrent,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest processes one file synchronously.
func (s *IngestService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.File, error) {
	file, err := s.register(ctx, req)
	if err != nil {
		s.discardStaged(req.LocalPath)
		return nil, err
	}
	return s.process(ctx, file, req.LocalPath)
}

// IngestAsync registers the file and processes it in the background.
// The returned record is already in processing; callers observe
// completion by polling the file status.
func (s *IngestService) IngestAsync(ctx context.Context, req driving.IngestRequest) (*domain.File, error) {
	file, err := s.register(ctx, req)
	if err != nil {
		s.discardStaged(req.LocalPath)
		return nil, err
	}

	// Detach from the request context so an upload response going out
	// does not cancel the pipeline.
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.process(bg, file, req.LocalPath); err != nil {
			logger.Error("ingest %s (%s) failed: %v", file.ID, file.Filename, err)
		}
	}()

	snapshot := *file
	return &snapshot, nil
}

// IngestBatch processes several files concurrently and independently.
func (s *IngestService) IngestBatch(ctx context.Context, reqs []driving.IngestRequest) []driving.BatchResult {
	results := make([]driving.BatchResult, len(reqs))
	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req driving.IngestRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			file, err := s.Ingest(ctx, req)
			results[i] = driving.BatchResult{File: file, Err: err}
		}(i, req)
	}

	wg.Wait()
	return results
}

// Wait blocks until all background ingestions have finished.
func (s *IngestService) Wait() {
	s.wg.Wait()
}

// register validates the request and creates the initial File record in
// uploaded state, immediately advanced to processing.
func (s *IngestService) register(ctx context.Context, req driving.IngestRequest) (*domain.File, error) {
	if req.Filename == "" || req.LocalPath == "" {
		return nil, fmt.Errorf("filename and local path are required: %w", domain.ErrInvalidInput)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(req.Filename)), ".")
	fileType, err := domain.FileTypeFromExtension(ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Filename, err)
	}

	file := &domain.File{
		ID:       uuid.New().String(),
		Filename: req.Filename,
		Type:     fileType,
		Size:     req.Size,
		Status:   domain.StatusUploaded,
	}
	if err := s.files.SaveFile(ctx, file); err != nil {
		return nil, fmt.Errorf("registering upload: %w", err)
	}

	if err := s.files.UpdateStatus(ctx, file.ID, domain.StatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("starting pipeline: %w", err)
	}
	file.Status = domain.StatusProcessing
	return file, nil
}

// process runs the staged file through extraction, chunking, embedding
// and indexing. The staged copy is removed on every path.
func (s *IngestService) process(ctx context.Context, file *domain.File, localPath string) (*domain.File, error) {
	defer s.discardStaged(localPath)

	if s.blobs != nil {
		key := fmt.Sprintf("files/%s/%s", file.ID, file.Filename)
		storedPath, err := s.blobs.Put(ctx, localPath, key)
		if err != nil {
			return s.fail(ctx, file, fmt.Errorf("storing original: %w", err))
		}
		file.StoredPath = storedPath
		if err := s.files.SaveFile(ctx, file); err != nil {
			return s.fail(ctx, file, fmt.Errorf("recording stored path: %w", err))
		}
	}

	pages, err := s.extractor.Extract(ctx, localPath, file.Type)
	if err != nil {
		return s.fail(ctx, file, err)
	}

	// A readable but blank document is valid input: it indexes with
	// zero chunks and never reaches the embedder.
	spans := s.chunker.ChunkPages(pages)
	chunkCount := 0
	if len(spans) > 0 {
		chunkCount, err = s.indexSpans(ctx, file, spans)
		if err != nil {
			return s.fail(ctx, file, err)
		}
	}

	totalPages := 0
	for _, page := range pages {
		if page.Number > totalPages {
			totalPages = page.Number
		}
	}
	if err := s.files.MarkIndexed(ctx, file.ID, totalPages, chunkCount); err != nil {
		return s.fail(ctx, file, fmt.Errorf("finalising file: %w", err))
	}

	file.Status = domain.StatusIndexed
	file.TotalPages = totalPages
	file.ChunkCount = chunkCount
	logger.Info("indexed %s: %d pages, %d chunks", file.Filename, totalPages, chunkCount)
	return file, nil
}

// indexSpans embeds the chunk texts, adds the vectors to the index and
// commits the chunk records. Returns the number of chunks committed.
func (s *IngestService) indexSpans(ctx context.Context, file *domain.File, spans []chunker.Span) (int, error) {
	texts := make([]string, len(spans))
	for i, span := range spans {
		texts[i] = span.Content
	}

	// One failed batch fails the whole file: no partial indexing.
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks: %w", len(texts), err)
	}
	if len(embeddings) != len(spans) {
		return 0, fmt.Errorf("embedding count mismatch: %w", domain.ErrEmbeddingFailed)
	}

	vectorIDs, err := s.vectors.Add(ctx, embeddings)
	if err != nil {
		return 0, fmt.Errorf("indexing vectors: %w", err)
	}

	// Persist the index before committing chunk records, so no chunk
	// ever references a vector that did not survive a crash. The
	// reverse window leaves only orphan vectors, which the janitor
	// model already tolerates.
	if err := s.vectors.Persist(ctx); err != nil {
		s.enqueueOrphans(ctx, file, vectorIDs)
		return 0, fmt.Errorf("persisting index: %w", err)
	}

	chunks := make([]domain.Chunk, len(spans))
	dim := s.embedder.Dimensions()
	for i, span := range spans {
		chunks[i] = domain.Chunk{
			ID:           uuid.New().String(),
			FileID:       file.ID,
			Title:        span.Title,
			Content:      span.Content,
			PageStart:    span.PageStart,
			PageEnd:      span.PageEnd,
			VectorID:     vectorIDs[i],
			EmbeddingDim: dim,
		}
	}
	if err := s.chunks.SaveChunks(ctx, chunks); err != nil {
		s.enqueueOrphans(ctx, file, vectorIDs)
		return 0, fmt.Errorf("saving chunks: %w", err)
	}

	return len(chunks), nil
}

// fail records the terminal failed state and returns the pipeline error.
func (s *IngestService) fail(ctx context.Context, file *domain.File, cause error) (*domain.File, error) {
	if err := s.files.UpdateStatus(ctx, file.ID, domain.StatusFailed, cause.Error()); err != nil {
		logger.Error("marking %s failed: %v", file.ID, err)
	}
	file.Status = domain.StatusFailed
	file.Error = cause.Error()
	return file, cause
}

// enqueueOrphans schedules janitor cleanup for vectors that were added
// to the index but whose chunks never committed. Best effort: if the
// enqueue itself fails the vectors stay orphaned, which only wastes
// space since nothing references them.
func (s *IngestService) enqueueOrphans(ctx context.Context, file *domain.File, vectorIDs []int64) {
	if s.queue == nil || len(vectorIDs) == 0 {
		return
	}
	job := &domain.RemovalJob{
		FileID:    file.ID,
		Filename:  file.Filename,
		VectorIDs: vectorIDs,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		logger.Warn("enqueueing orphan vectors for %s: %v", file.ID, err)
	}
}

// discardStaged removes the staged upload copy.
func (s *IngestService) discardStaged(localPath string) {
	if localPath == "" {
		return
	}
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("removing staged file %s: %v", localPath, err)
	}
}

package services

import (
	"context"
	"fmt"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
	"github.com/notelm/notelm/internal/core/ports/driving"
	"github.com/notelm/notelm/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// DefaultTopK is the number of contexts returned when unspecified.
const DefaultTopK = 5

// scopeOverfetch widens the candidate set when results are restricted
// to specific files, since the index itself has no notion of ownership.
const scopeOverfetch = 10

// unknownFilename labels contexts whose File record vanished between
// chunk resolution and filename lookup.
const unknownFilename = "Unknown"

// RetrievalService turns questions into ranked, citation-numbered
// contexts backed by the vector index and metadata store.
type RetrievalService struct {
	files    driven.FileStore
	chunks   driven.ChunkStore
	vectors  driven.VectorStore
	embedder driven.EmbeddingService

	defaultTopK int
}

// RetrievalOption configures the service.
type RetrievalOption func(*RetrievalService)

// WithDefaultTopK sets the TopK used when a request leaves it zero.
func WithDefaultTopK(k int) RetrievalOption {
	return func(s *RetrievalService) {
		if k > 0 {
			s.defaultTopK = k
		}
	}
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(
	files driven.FileStore,
	chunks driven.ChunkStore,
	vectors driven.VectorStore,
	embedder driven.EmbeddingService,
	opts ...RetrievalOption,
) *RetrievalService {
	s := &RetrievalService{
		files:       files,
		chunks:      chunks,
		vectors:     vectors,
		embedder:    embedder,
		defaultTopK: DefaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrieve embeds the question, searches the index and resolves hits
// into contexts with citation ordinals assigned in relevance order.
func (s *RetrievalService) Retrieve(ctx context.Context, question string, opts driving.RetrieveOptions) ([]domain.RetrievedContext, []domain.Source, error) {
	if question == "" {
		return nil, nil, fmt.Errorf("question is required: %w", domain.ErrInvalidInput)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}

	query, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding question: %w", err)
	}

	// Scoping is a post-filter: over-fetch so filtering still has a
	// chance to fill topK from the allowed files.
	k := topK
	scoped := len(opts.FileIDs) > 0
	if scoped {
		k = topK * scopeOverfetch
	}

	hits, err := s.vectors.Search(ctx, query, k)
	if err != nil {
		return nil, nil, fmt.Errorf("searching index: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil, nil
	}

	ids := make([]int64, len(hits))
	scores := make(map[int64]float32, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ID
		scores[hit.ID] = hit.Score
	}

	resolved, err := s.chunks.GetByVectorIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving chunks: %w", err)
	}
	byVector := make(map[int64]domain.Chunk, len(resolved))
	for _, chunk := range resolved {
		byVector[chunk.VectorID] = chunk
	}

	allowed := make(map[string]bool, len(opts.FileIDs))
	for _, id := range opts.FileIDs {
		allowed[id] = true
	}

	filenames := make(map[string]string)
	var contexts []domain.RetrievedContext
	var sources []domain.Source

	for _, hit := range hits {
		if len(contexts) >= topK {
			break
		}
		chunk, ok := byVector[hit.ID]
		if !ok {
			// Stale hit: the chunk was deleted but the vector has not
			// been removed yet. Skip rather than fail.
			logger.Debug("skipping stale vector %d", hit.ID)
			continue
		}
		if scoped && !allowed[chunk.FileID] {
			continue
		}

		filename, ok := filenames[chunk.FileID]
		if !ok {
			file, err := s.files.GetFile(ctx, chunk.FileID)
			if err != nil {
				// The chunk resolved but its File record is gone, a
				// narrow race with deletion. Keep the context under a
				// placeholder name rather than shrinking results.
				logger.Debug("no file record for %s: %v", chunk.FileID, err)
				filename = unknownFilename
			} else {
				filename = file.Filename
			}
			filenames[chunk.FileID] = filename
		}

		citation := len(contexts) + 1
		contexts = append(contexts, domain.RetrievedContext{
			Content:   chunk.Content,
			Title:     chunk.Title,
			Filename:  filename,
			PageStart: chunk.PageStart,
			PageEnd:   chunk.PageEnd,
			Score:     scores[hit.ID],
			Citation:  citation,
		})
		sources = append(sources, domain.Source{
			FileID:    chunk.FileID,
			ChunkID:   chunk.ID,
			Filename:  filename,
			Title:     chunk.Title,
			Content:   chunk.Content,
			PageStart: chunk.PageStart,
			PageEnd:   chunk.PageEnd,
			Citation:  citation,
		})
	}

	return contexts, sources, nil
}

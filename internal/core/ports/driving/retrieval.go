package driving

import (
	"context"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
)

// RetrieveOptions scope a retrieval request.
type RetrieveOptions struct {
	// TopK is the number of contexts wanted. Zero means the configured
	// default.
	TopK int

	// FileIDs, when non-empty, restricts results to chunks owned by
	// those files. Scoping is a post-filter over a widened candidate
	// set, so fewer than TopK results may come back.
	FileIDs []string
}

// RetrievalService turns a question into ranked, citation-numbered
// contexts.
type RetrievalService interface {
	// Retrieve embeds the question, searches the vector index, resolves
	// hits against the metadata store and assigns citation ordinals
	// 1..N in relevance order. Empty results are a normal outcome.
	Retrieve(ctx context.Context, question string, opts RetrieveOptions) ([]domain.RetrievedContext, []domain.Source, error)
}

// ChatService answers a question with a token stream plus sources.
type ChatService interface {
	// Ask retrieves contexts for the question and streams an answer.
	// Sources are returned up front so the caller can render citations
	// while tokens arrive.
	Ask(ctx context.Context, question string, history []driven.Message, opts RetrieveOptions) (<-chan driven.StreamEvent, []domain.Source, error)
}

package services

import (
	"context"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
	"github.com/notelm/notelm/internal/core/ports/driving"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService glues retrieval and answer generation into one ask call.
type ChatService struct {
	retrieval driving.RetrievalService
	answerer  driven.AnswerService
}

// NewChatService creates a chat service.
func NewChatService(retrieval driving.RetrievalService, answerer driven.AnswerService) *ChatService {
	return &ChatService{
		retrieval: retrieval,
		answerer:  answerer,
	}
}

// Ask retrieves contexts and opens an answer stream. Sources come back
// immediately so callers can render the citation list while tokens
// arrive. An empty retrieval still asks; the model is prompted to say
// the documents hold no answer.
func (s *ChatService) Ask(ctx context.Context, question string, history []driven.Message, opts driving.RetrieveOptions) (<-chan driven.StreamEvent, []domain.Source, error) {
	contexts, sources, err := s.retrieval.Retrieve(ctx, question, opts)
	if err != nil {
		return nil, nil, err
	}

	events, err := s.answerer.StreamAnswer(ctx, question, contexts, history)
	if err != nil {
		return nil, nil, err
	}
	return events, sources, nil
}

package driven

import (
	"context"

	"github.com/notelm/notelm/internal/core/domain"
)

// StreamEventType tags an answer stream event.
type StreamEventType string

// The closed set of stream event shapes. Provider payloads that do not
// parse into one of these are dropped, not guessed at.
const (
	StreamToken StreamEventType = "token"
	StreamDone  StreamEventType = "done"
	StreamError StreamEventType = "error"
)

// StreamEvent is one element of an answer token stream. The stream is
// terminated by exactly one done or error event.
type StreamEvent struct {
	Type    StreamEventType
	Content string
}

// Message is one prior conversation turn.
type Message struct {
	// Role is "user" or "assistant".
	Role string

	// Content is the turn text.
	Content string
}

// AnswerService generates a streamed answer grounded in retrieved
// contexts. The contexts carry citation ordinals the model is prompted
// to reference as [1], [2], ...
type AnswerService interface {
	// StreamAnswer returns a channel of events ending with a single
	// done or error event. The channel is closed after the terminal
	// event. Cancelling ctx stops the stream.
	StreamAnswer(ctx context.Context, question string, contexts []domain.RetrievedContext, history []Message) (<-chan StreamEvent, error)

	// Close releases resources.
	Close() error
}

// Package openai provides the answer generation adapter using the
// OpenAI chat completions API with streaming.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
)

// Ensure AnswerService implements the interface.
var _ driven.AnswerService = (*AnswerService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "gpt-4o-mini"
	DefaultTimeout    = 120 * time.Second
	DefaultMaxTokens  = 1000
	DefaultMaxHistory = 3
)

// defaultTemperature balances grounding against fluent synthesis.
const defaultTemperature = 0.7

// Config holds configuration for the OpenAI answer service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout caps the whole streamed response (default: 120s).
	Timeout time.Duration

	// MaxTokens caps the generated answer length (default: 1000).
	MaxTokens int

	// MaxHistory is how many prior turns get included in the prompt
	// (default: 3). Zero uses the default; negative disables history.
	MaxHistory int
}

// AnswerService streams grounded answers from the OpenAI chat API.
type AnswerService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	maxHistory int
}

// chatMessage is the OpenAI chat message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the OpenAI /chat/completions request format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// streamChunk is one SSE data payload from the streaming API.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// apiError is the non-streaming error envelope returned on bad requests.
type apiError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewAnswerService creates a new OpenAI answer service.
func NewAnswerService(cfg Config) (*AnswerService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	maxHistory := cfg.MaxHistory
	if maxHistory == 0 {
		maxHistory = DefaultMaxHistory
	}

	return &AnswerService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		maxHistory: maxHistory,
	}, nil
}

// StreamAnswer opens a streaming completion and relays it as StreamEvents.
// The returned channel always ends with exactly one done or error event
// and is then closed. An error return means the request never started.
func (s *AnswerService) StreamAnswer(ctx context.Context, question string, contexts []domain.RetrievedContext, history []driven.Message) (<-chan driven.StreamEvent, error) {
	reqBody := chatRequest{
		Model:       s.model,
		Messages:    buildMessages(question, contexts, history, s.maxHistory),
		Stream:      true,
		MaxTokens:   s.maxTokens,
		Temperature: defaultTemperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("openai error (status %d)", resp.StatusCode)
		}
		var envelope apiError
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
			return nil, fmt.Errorf("openai error: %s", envelope.Error.Message)
		}
		return nil, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}

	events := make(chan driven.StreamEvent)
	go s.relay(ctx, resp.Body, events)
	return events, nil
}

// relay parses the SSE body into events. Malformed data lines are
// skipped rather than failing the stream.
func (s *AnswerService) relay(ctx context.Context, body io.ReadCloser, events chan<- driven.StreamEvent) {
	defer close(events)
	defer body.Close()

	emit := func(event driven.StreamEvent) bool {
		select {
		case events <- event:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			emit(driven.StreamEvent{Type: driven.StreamDone})
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			emit(driven.StreamEvent{Type: driven.StreamError, Content: chunk.Error.Message})
			return
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			if !emit(driven.StreamEvent{Type: driven.StreamToken, Content: content}) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		emit(driven.StreamEvent{Type: driven.StreamError, Content: err.Error()})
		return
	}

	// Stream ended without a [DONE] marker; treat a clean EOF as done.
	emit(driven.StreamEvent{Type: driven.StreamDone})
}

// Close releases resources.
func (s *AnswerService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

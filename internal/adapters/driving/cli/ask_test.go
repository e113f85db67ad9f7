package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
)

func TestAskCmd_StreamsAnswerWithSources(t *testing.T) {
	oldService := chatService
	chat := &mockChat{
		events: []driven.StreamEvent{
			{Type: driven.StreamToken, Content: "Berlin"},
			{Type: driven.StreamToken, Content: " [1]"},
			{Type: driven.StreamDone},
		},
		sources: []domain.Source{{Filename: "geo.pdf", Citation: 1, PageStart: 4, PageEnd: 4}},
	}
	chatService = chat
	defer func() { chatService = oldService }()

	out, err := execute(t, "ask", "capital of Germany?")

	require.NoError(t, err)
	assert.Equal(t, "capital of Germany?", chat.lastQ)
	assert.Contains(t, out, "Berlin [1]")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] geo.pdf - p. 4")
}

func TestAskCmd_ScopeFlags(t *testing.T) {
	oldService := chatService
	chat := &mockChat{events: []driven.StreamEvent{{Type: driven.StreamDone}}}
	chatService = chat
	defer func() { chatService = oldService }()

	_, err := execute(t, "ask", "q?", "--top-k", "3", "--file", "f1", "--file", "f2")

	require.NoError(t, err)
	assert.Equal(t, 3, chat.lastOpt.TopK)
	assert.Equal(t, []string{"f1", "f2"}, chat.lastOpt.FileIDs)
}

func TestAskCmd_StreamError(t *testing.T) {
	oldService := chatService
	chatService = &mockChat{events: []driven.StreamEvent{
		{Type: driven.StreamToken, Content: "partial"},
		{Type: driven.StreamError, Content: "provider unavailable"},
	}}
	defer func() { chatService = oldService }()

	_, err := execute(t, "ask", "q?")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider unavailable")
}

func TestAskCmd_RequestError(t *testing.T) {
	oldService := chatService
	chatService = &mockChat{err: errors.New("embedding failed")}
	defer func() { chatService = oldService }()

	_, err := execute(t, "ask", "q?")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ask failed")
}

func TestAskCmd_ServiceNotConfigured(t *testing.T) {
	oldService := chatService
	chatService = nil
	defer func() { chatService = oldService }()

	_, err := execute(t, "ask", "q?")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestSearchCmd_PrintsRankedPassages(t *testing.T) {
	oldService := retrievalService
	retrieval := &mockRetrieval{contexts: []domain.RetrievedContext{
		{Content: "Berlin is the capital.", Filename: "geo.pdf", PageStart: 4, PageEnd: 4, Score: 0.91, Citation: 1},
		{Content: "Germany is in Europe.", Filename: "geo.pdf", PageStart: 1, PageEnd: 2, Score: 0.55, Citation: 2},
	}}
	retrievalService = retrieval
	defer func() { retrievalService = oldService }()

	out, err := execute(t, "search", "capital?")

	require.NoError(t, err)
	assert.Contains(t, out, "[1] geo.pdf - p. 4 (score 0.910)")
	assert.Contains(t, out, "[2] geo.pdf - pp. 1-2 (score 0.550)")
	assert.Contains(t, out, "Berlin is the capital.")
}

func TestSearchCmd_NoResults(t *testing.T) {
	oldService := retrievalService
	retrievalService = &mockRetrieval{}
	defer func() { retrievalService = oldService }()

	out, err := execute(t, "search", "anything")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	oldService := retrievalService
	retrievalService = &mockRetrieval{contexts: []domain.RetrievedContext{
		{Content: "Berlin.", Filename: "geo.pdf", Citation: 1},
	}}
	defer func() {
		retrievalService = oldService
		searchJSON = false
	}()

	out, err := execute(t, "search", "capital?", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"Filename": "geo.pdf"`)
}

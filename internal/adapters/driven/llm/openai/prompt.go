package openai

import (
	"fmt"
	"strings"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
)

// systemPrompt constrains answers to the supplied material and the
// bracketed citation convention.
const systemPrompt = `You are an assistant that answers questions using only the provided documents.
Rules:
- Use only information found in the documents
- Cite supporting passages as [1], [2], [3]
- If the documents do not contain the answer, say "Not found in the documents"
- Be concise and precise`

// buildMessages assembles the chat payload: system rules, trimmed
// history, then the question prefixed with the numbered context block.
func buildMessages(question string, contexts []domain.RetrievedContext, history []driven.Message, maxHistory int) []chatMessage {
	messages := []chatMessage{{Role: "system", Content: systemPrompt}}

	if maxHistory < 0 {
		history = nil
	} else if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	for _, msg := range history {
		messages = append(messages, chatMessage{Role: msg.Role, Content: msg.Content})
	}

	messages = append(messages, chatMessage{
		Role:    "user",
		Content: fmt.Sprintf("Documents:\n%s\n\nQuestion: %s", contextBlock(contexts), question),
	})
	return messages
}

// contextBlock renders each context under its citation header so the
// model can attribute claims to [n] markers.
func contextBlock(contexts []domain.RetrievedContext) string {
	parts := make([]string, 0, len(contexts))
	for _, ctx := range contexts {
		var b strings.Builder
		b.WriteString(ctx.CitationLine())
		b.WriteString("\n")
		if ctx.Title != "" {
			b.WriteString("Title: ")
			b.WriteString(ctx.Title)
			b.WriteString("\n")
		}
		b.WriteString("Content: ")
		b.WriteString(ctx.Content)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

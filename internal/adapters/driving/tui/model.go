// Package tui is an interactive chat surface over the document library.
// It streams answer tokens into a viewport and keeps the conversation
// history for follow-up questions.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
	"github.com/notelm/notelm/internal/core/ports/driving"
)

// turn is one completed question/answer pair.
type turn struct {
	question string
	answer   string
	sources  []domain.Source
	failed   bool
}

// Stream messages delivered by the answer pump.
type (
	streamStartedMsg struct {
		events  <-chan driven.StreamEvent
		sources []domain.Source
	}
	tokenMsg  string
	doneMsg   struct{}
	errMsg    string
	failedMsg struct{ err error }
)

// Model is the Bubble Tea model for the chat view.
type Model struct {
	chat driving.ChatService

	input    textinput.Model
	viewport viewport.Model

	turns   []turn
	current *turn
	events  <-chan driven.StreamEvent

	status    string
	streaming bool
	ready     bool
}

// New creates the chat model.
func New(chat driving.ChatService) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your documents"
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		chat:     chat,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Ready. Type a question and press Enter.",
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and stream events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + ih + 1 // title, input frame, status
		vh := msg.Height - reserved - ch
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderConversation())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.String() == "esc" {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.streaming {
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				break
			}
			m.input.SetValue("")
			m.current = &turn{question: question}
			m.streaming = true
			m.status = "Thinking..."
			m.viewport.SetContent(m.renderConversation())
			m.viewport.GotoBottom()
			return m, m.startStream(question)
		}

	case streamStartedMsg:
		m.events = msg.events
		if m.current != nil {
			m.current.sources = msg.sources
		}
		return m, m.pump()

	case tokenMsg:
		if m.current != nil {
			m.current.answer += string(msg)
		}
		m.viewport.SetContent(m.renderConversation())
		m.viewport.GotoBottom()
		return m, m.pump()

	case doneMsg:
		m.finishTurn(false)
		m.status = "Done. Ask another question."
		m.viewport.SetContent(m.renderConversation())
		m.viewport.GotoBottom()
		return m, nil

	case errMsg:
		if m.current != nil {
			m.current.answer = string(msg)
		}
		m.finishTurn(true)
		m.status = "Answer failed."
		m.viewport.SetContent(m.renderConversation())
		return m, nil

	case failedMsg:
		if m.current != nil {
			m.current.answer = msg.err.Error()
		}
		m.finishTurn(true)
		m.status = "Request failed."
		m.viewport.SetContent(m.renderConversation())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := titleStyle.Render("notelm chat")
	conversation := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return title + "\n" + conversation + "\n" + input + "\n" + status
}

// startStream opens the answer stream for a question.
func (m Model) startStream(question string) tea.Cmd {
	history := m.historyMessages()
	return func() tea.Msg {
		events, sources, err := m.chat.Ask(context.Background(), question, history, driving.RetrieveOptions{})
		if err != nil {
			return failedMsg{err: err}
		}
		return streamStartedMsg{events: events, sources: sources}
	}
}

// pump waits for the next stream event.
func (m Model) pump() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return doneMsg{}
		}
		switch event.Type {
		case driven.StreamToken:
			return tokenMsg(event.Content)
		case driven.StreamError:
			return errMsg(event.Content)
		default:
			return doneMsg{}
		}
	}
}

// finishTurn commits the in-flight turn to history.
func (m *Model) finishTurn(failed bool) {
	m.streaming = false
	if m.current == nil {
		return
	}
	m.current.failed = failed
	m.turns = append(m.turns, *m.current)
	m.current = nil
	m.events = nil
}

// historyMessages converts completed turns into prompt history.
func (m Model) historyMessages() []driven.Message {
	var history []driven.Message
	for _, t := range m.turns {
		if t.failed {
			continue
		}
		history = append(history,
			driven.Message{Role: "user", Content: t.question},
			driven.Message{Role: "assistant", Content: t.answer},
		)
	}
	return history
}

// renderConversation renders all turns plus the in-flight one.
func (m Model) renderConversation() string {
	var b strings.Builder
	render := func(t turn, streaming bool) {
		b.WriteString(questionStyle.Render("You: " + t.question))
		b.WriteString("\n")
		style := answerStyle
		if t.failed {
			style = errorStyle
		}
		answer := t.answer
		if streaming && answer == "" {
			answer = "..."
		}
		b.WriteString(style.Render(answer))
		b.WriteString("\n")
		if len(t.sources) > 0 && !t.failed {
			b.WriteString(sourceStyle.Render(renderSources(t.sources)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	for _, t := range m.turns {
		render(t, false)
	}
	if m.current != nil {
		render(*m.current, true)
	}
	if b.Len() == 0 {
		return "No conversation yet."
	}
	return b.String()
}

// renderSources lists citation lines under an answer.
func renderSources(sources []domain.Source) string {
	lines := make([]string, 0, len(sources))
	for _, src := range sources {
		line := fmt.Sprintf("[%d] %s", src.Citation, src.Filename)
		if label := domain.PageLabel(src.PageStart, src.PageEnd); label != "" {
			line += " - " + label
		}
		lines = append(lines, line)
	}
	return "Sources:\n" + strings.Join(lines, "\n")
}

// Run starts the program in the alternate screen.
func Run(chat driving.ChatService) error {
	program := tea.NewProgram(New(chat), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// Package chat assembles retrieved chunks and recent conversation turns
// into a token-bounded prompt, invokes the completion collaborator, and
// tracks the rolling conversation history for one session.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nlebrun/webrag/internal/ai"
	"github.com/nlebrun/webrag/pkg/models"
)

const (
	// Full history retained in memory; oldest turns are discarded first.
	defaultMaxHistoryTurns = 20
	// Turns actually rendered into the prompt (3 user/assistant exchanges).
	defaultRecentTurns = 6
	// Token budget for the retrieved context section.
	defaultContextBudget = 3000

	truncationMarker     = "... (context truncated to fit the token budget)"
	noContextPlaceholder = "No relevant context found in the indexed documents."
	noHistoryPlaceholder = "No previous conversation."
)

// Manager is a single-session conversation manager. It is not safe for
// concurrent use; callers serve one session per instance.
type Manager struct {
	client          ai.Client
	style           string
	systemPrompt    string
	history         []models.Turn
	maxHistoryTurns int
	recentTurns     int
	contextBudget   int
	countTokens     tokenCounter
}

type Option func(*Manager)

func WithMaxHistoryTurns(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxHistoryTurns = n
		}
	}
}

func WithContextBudget(tokens int) Option {
	return func(m *Manager) {
		if tokens > 0 {
			m.contextBudget = tokens
		}
	}
}

func WithStyle(style string) Option {
	return func(m *Manager) { _ = m.SetStyle(style) }
}

func New(client ai.Client, opts ...Option) *Manager {
	m := &Manager{
		client:          client,
		style:           "default",
		systemPrompt:    Prompts["default"],
		maxHistoryTurns: defaultMaxHistoryTurns,
		recentTurns:     defaultRecentTurns,
		contextBudget:   defaultContextBudget,
		countTokens:     newTokenCounter(client.Model()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetStyle swaps the active system prompt template. History is kept.
func (m *Manager) SetStyle(style string) error {
	prompt, ok := Prompts[style]
	if !ok {
		return fmt.Errorf("unknown prompt style: %s", style)
	}
	m.style = style
	m.systemPrompt = prompt
	return nil
}

// Style returns the active prompt style.
func (m *Manager) Style() string { return m.style }

// Styles lists the available prompt styles.
func Styles() []string {
	out := make([]string, 0, len(Prompts))
	for name := range Prompts {
		out = append(out, name)
	}
	return out
}

// FormatContext renders search results as numbered blocks in the order
// returned by the search (assumed best-first, no re-ranking).
func FormatContext(results []models.SearchResult) string {
	if len(results) == 0 {
		return noContextPlaceholder
	}

	var b strings.Builder
	for i, r := range results {
		title := r.Metadata.Title
		if title == "" {
			title = "Untitled"
		}
		source := r.Metadata.SourceURL
		if source == "" {
			source = "Unknown source"
		}
		fmt.Fprintf(&b, "Document %d:\nTitle: %s\nSource: %s\nContent: %s\n---\n", i+1, title, source, r.Content)
	}
	return b.String()
}

// trimContext cuts the context down to the token budget by dropping whole
// trailing lines, appending a marker when anything was dropped.
func trimContext(context string, budget int, count tokenCounter) string {
	if count(context) <= budget {
		return context
	}

	lines := strings.Split(context, "\n")
	var kept []string
	used := 0
	for _, line := range lines {
		tokens := count(line)
		if used+tokens > budget {
			break
		}
		kept = append(kept, line)
		used += tokens
	}

	return strings.Join(kept, "\n") + "\n" + truncationMarker
}

// formatHistory renders only the most recent turns.
func (m *Manager) formatHistory() string {
	if len(m.history) == 0 {
		return noHistoryPlaceholder
	}

	recent := m.history
	if len(recent) > m.recentTurns {
		recent = recent[len(recent)-m.recentTurns:]
	}

	parts := make([]string, 0, len(recent))
	for _, t := range recent {
		switch t.Role {
		case "user":
			parts = append(parts, "User: "+t.Content)
		case "assistant":
			parts = append(parts, "Assistant: "+t.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// Respond builds the prompt from the question, the search results and the
// conversation history, invokes the completion client, and on success
// appends the exchange to history. On failure history is left untouched
// and the returned answer carries the error flag.
func (m *Manager) Respond(ctx context.Context, question string, results []models.SearchResult) models.Answer {
	contextText := trimContext(FormatContext(results), m.contextBudget, m.countTokens)

	system := strings.NewReplacer(
		"{context}", contextText,
		"{conversation_history}", m.formatHistory(),
	).Replace(m.systemPrompt)

	log.Debug().Str("style", m.style).Int("results", len(results)).Msg("generating response")

	text, usage, err := m.client.Complete(ctx, system, question)
	if err != nil {
		log.Error().Err(err).Msg("completion failed")
		return models.Answer{
			Response:  "Failed to generate a response: " + err.Error(),
			Model:     m.client.Model(),
			Timestamp: time.Now(),
			Error:     true,
		}
	}

	m.history = append(m.history,
		models.Turn{Role: "user", Content: question},
		models.Turn{Role: "assistant", Content: text},
	)
	if len(m.history) > m.maxHistoryTurns {
		m.history = m.history[len(m.history)-m.maxHistoryTurns:]
	}

	return models.Answer{
		Response:    text,
		Model:       m.client.Model(),
		Timestamp:   time.Now(),
		TokenUsage:  usage,
		SourcesUsed: len(results),
	}
}

// History returns a copy of the retained conversation.
func (m *Manager) History() []models.Turn {
	out := make([]models.Turn, len(m.history))
	copy(out, m.history)
	return out
}

// ClearHistory empties the conversation. Safe to call repeatedly.
func (m *Manager) ClearHistory() {
	m.history = m.history[:0]
	log.Info().Msg("conversation history cleared")
}

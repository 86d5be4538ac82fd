// Package llm defines the text-generation contract consumed by the turn
// processor and helpers shared by its implementations.
package llm

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// Roles used in Message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxReplyRunes caps a generated reply before it reaches the caller.
const MaxReplyRunes = 2000

var (
	// ErrEmptyResponse is returned when the provider produced no text.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrQuotaExceeded is returned once the daily request quota is spent.
	ErrQuotaExceeded = errors.New("llm: daily request quota exceeded")
)

// Message is one prior turn passed to the generator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generation is a reply plus the metadata of the call that produced it.
type Generation struct {
	Text       string  `json:"-"`
	LatencyMS  float64 `json:"latency_ms"`
	TokenCount int     `json:"token_count"`
	Model      string  `json:"model"`
}

// Generator produces a reply for a fully built prompt.
type Generator interface {
	Generate(ctx context.Context, prompt, contextBlock string, history []Message) (Generation, error)
}

// FormatReply trims text and truncates it to MaxReplyRunes, marking the cut
// with "...".
func FormatReply(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= MaxReplyRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxReplyRunes]) + "..."
}

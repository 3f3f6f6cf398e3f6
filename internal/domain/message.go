package domain

import (
	"fmt"
	"strings"
)

// Provider is an optional hint naming the model provider a request prefers.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// ParseProvider validates a raw provider name against the known set.
func ParseProvider(raw string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(raw))) {
	case ProviderClaude:
		return ProviderClaude, nil
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderGemini:
		return ProviderGemini, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, raw)
	}
}

// ClientMessage is the prompt a client submitted, plus an optional provider
// hint and an optional token budget. Immutable: the With* methods validate the
// new field and return a copy.
type ClientMessage struct {
	prompt    string
	provider  Provider // empty = no hint
	maxTokens int      // 0 = unset
}

// NewClientMessage builds a message from a prompt. The prompt is trimmed and
// must be non-empty.
func NewClientMessage(prompt string) (ClientMessage, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return ClientMessage{}, ErrEmptyPrompt
	}
	return ClientMessage{prompt: trimmed}, nil
}

// WithProviderHint returns a copy of the message carrying the given hint.
func (m ClientMessage) WithProviderHint(p Provider) (ClientMessage, error) {
	parsed, err := ParseProvider(string(p))
	if err != nil {
		return ClientMessage{}, err
	}
	m.provider = parsed
	return m, nil
}

// WithMaxTokens returns a copy of the message carrying the given token budget.
func (m ClientMessage) WithMaxTokens(n int) (ClientMessage, error) {
	if n <= 0 {
		return ClientMessage{}, fmt.Errorf("%w: %d", ErrInvalidMaxTokens, n)
	}
	m.maxTokens = n
	return m, nil
}

// Prompt returns the trimmed prompt text.
func (m ClientMessage) Prompt() string { return m.prompt }

// ProviderHint returns the provider hint and whether one is set.
func (m ClientMessage) ProviderHint() (Provider, bool) {
	return m.provider, m.provider != ""
}

// MaxTokens returns the token budget and whether one is set.
func (m ClientMessage) MaxTokens() (int, bool) {
	return m.maxTokens, m.maxTokens > 0
}

// RehydrateClientMessage rebuilds a persisted message, re-running validation
// so a corrupt row cannot produce an invalid value.
func RehydrateClientMessage(prompt, providerHint string, maxTokens int) (ClientMessage, error) {
	msg, err := NewClientMessage(prompt)
	if err != nil {
		return ClientMessage{}, err
	}
	if providerHint != "" {
		if msg, err = msg.WithProviderHint(Provider(providerHint)); err != nil {
			return ClientMessage{}, err
		}
	}
	if maxTokens != 0 {
		if msg, err = msg.WithMaxTokens(maxTokens); err != nil {
			return ClientMessage{}, err
		}
	}
	return msg, nil
}

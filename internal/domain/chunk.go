package domain

import (
	"fmt"
	"strings"
)

// ChunkKind tags a StreamChunk variant.
type ChunkKind string

const (
	ChunkDelta    ChunkKind = "delta"
	ChunkComplete ChunkKind = "complete"
	ChunkError    ChunkKind = "error"
)

// StreamChunk is a tagged variant describing one piece of a streamed response:
// a Delta fragment of text, a Complete marker with an optional token total, or
// an Error marker. Unknown tags are rejected at construction.
type StreamChunk struct {
	kind        ChunkKind
	content     string // delta only
	totalTokens int    // complete only, 0 = unset
	message     string // error only
}

// NewDeltaChunk builds a delta chunk. Content must be non-empty; it is not
// trimmed, since whitespace is significant in streamed text.
func NewDeltaChunk(content string) (StreamChunk, error) {
	if content == "" {
		return StreamChunk{}, ErrEmptyChunkContent
	}
	return StreamChunk{kind: ChunkDelta, content: content}, nil
}

// NewCompleteChunk builds a completion marker. totalTokens of 0 means unset;
// negative values are rejected.
func NewCompleteChunk(totalTokens int) (StreamChunk, error) {
	if totalTokens < 0 {
		return StreamChunk{}, fmt.Errorf("%w: %d", ErrInvalidTokenCount, totalTokens)
	}
	return StreamChunk{kind: ChunkComplete, totalTokens: totalTokens}, nil
}

// NewErrorChunk builds an error marker with a trimmed, non-empty message.
func NewErrorChunk(message string) (StreamChunk, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return StreamChunk{}, ErrEmptyErrorMessage
	}
	return StreamChunk{kind: ChunkError, message: trimmed}, nil
}

// RehydrateChunk rebuilds a persisted chunk, rejecting unknown tags.
func RehydrateChunk(kind ChunkKind, content string, totalTokens int, message string) (StreamChunk, error) {
	switch kind {
	case ChunkDelta:
		return NewDeltaChunk(content)
	case ChunkComplete:
		return NewCompleteChunk(totalTokens)
	case ChunkError:
		return NewErrorChunk(message)
	default:
		return StreamChunk{}, fmt.Errorf("%w: %q", ErrUnknownChunkKind, kind)
	}
}

// Kind returns the chunk's tag.
func (c StreamChunk) Kind() ChunkKind { return c.kind }

// Content returns the delta text. Empty for non-delta chunks.
func (c StreamChunk) Content() string { return c.content }

// TotalTokens returns the completion token total and whether one is set.
func (c StreamChunk) TotalTokens() (int, bool) {
	return c.totalTokens, c.kind == ChunkComplete && c.totalTokens > 0
}

// ErrorMessage returns the error text. Empty for non-error chunks.
func (c StreamChunk) ErrorMessage() string { return c.message }

// Match dispatches on the chunk's tag, covering every variant. Nil handlers
// are skipped.
func (c StreamChunk) Match(
	onDelta func(content string),
	onComplete func(totalTokens int, tokensSet bool),
	onError func(message string),
) {
	switch c.kind {
	case ChunkDelta:
		if onDelta != nil {
			onDelta(c.content)
		}
	case ChunkComplete:
		if onComplete != nil {
			tokens, ok := c.TotalTokens()
			onComplete(tokens, ok)
		}
	case ChunkError:
		if onError != nil {
			onError(c.message)
		}
	}
}

package domain

import "errors"

// Sentinel errors raised by aggregate transition guards and value object
// constructors. Callers match with errors.Is.
var (
	// ErrInvalidSessionState is returned when a session operation is called
	// in a state that does not permit it (e.g. closing a closed session).
	ErrInvalidSessionState = errors.New("invalid session state")

	// ErrInvalidRequestState is returned when a request operation is called
	// in a state that does not permit it (e.g. completing a pending request).
	ErrInvalidRequestState = errors.New("invalid request state")

	// ErrEmptyID is returned when an identifier is empty after trimming.
	ErrEmptyID = errors.New("identifier must not be empty")

	// ErrEmptyPrompt is returned when a client message prompt is empty after trimming.
	ErrEmptyPrompt = errors.New("prompt must not be empty")

	// ErrInvalidMaxTokens is returned when a token budget is zero or negative.
	ErrInvalidMaxTokens = errors.New("max tokens must be positive")

	// ErrInvalidTokenCount is returned when a completion token total is
	// negative. Zero means unknown and is permitted.
	ErrInvalidTokenCount = errors.New("token count must not be negative")

	// ErrUnknownProvider is returned for a provider hint outside the known set.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrEmptyChunkContent is returned when a delta chunk carries no content.
	ErrEmptyChunkContent = errors.New("delta chunk content must not be empty")

	// ErrEmptyErrorMessage is returned when an error chunk or a failure reason
	// is empty after trimming.
	ErrEmptyErrorMessage = errors.New("error message must not be empty")

	// ErrUnknownChunkKind is returned when rehydrating a chunk with an
	// unrecognized tag. Unknown tags are rejected at construction, never at use.
	ErrUnknownChunkKind = errors.New("unknown chunk kind")
)

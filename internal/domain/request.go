package domain

import (
	"fmt"
	"strings"
	"time"
)

// RequestState is the lifecycle state of a streamed request.
type RequestState string

const (
	RequestStatePending   RequestState = "pending"
	RequestStateStreaming RequestState = "streaming"
	RequestStateCompleted RequestState = "completed"
	RequestStateFailed    RequestState = "failed"
)

// CompletionMeta carries optional metadata attached when a request completes.
// Zero values mean unset.
type CompletionMeta struct {
	TotalTokens int
	StopReason  string
}

// Request owns a single streamed request: the client message that started it,
// the chunks accumulated so far, and its terminal outcome.
//
// State machine: Pending --AddChunk--> Streaming --AddChunk--> Streaming;
// Streaming --Complete--> Completed; {Pending,Streaming} --Fail--> Failed.
// Completed and Failed are terminal.
type Request struct {
	id            RequestID
	sessionID     SessionID
	message       ClientMessage
	state         RequestState
	chunks        []StreamChunk
	receivedAt    time.Time
	completedAt   time.Time // zero unless terminal
	failureReason string
	totalTokens   int
	stopReason    string
}

// NewRequest creates a Pending request for the given session and message.
// A zero timestamp means now. Never fails; emits a single RequestReceived event.
func NewRequest(id RequestID, sessionID SessionID, message ClientMessage, at time.Time) (Request, []Event) {
	if at.IsZero() {
		at = time.Now()
	}
	r := Request{
		id:         id,
		sessionID:  sessionID,
		message:    message,
		state:      RequestStatePending,
		receivedAt: at,
	}
	return r, []Event{RequestReceived{RequestID: id, SessionID: sessionID, At: at}}
}

// AddChunk appends a chunk and returns the new snapshot. The first accepted
// chunk drives Pending to Streaming; the state is otherwise unchanged. The
// chunk is appended regardless of its tag: Complete and Error chunks do not
// terminate the request, only Complete/Fail do.
func (r Request) AddChunk(chunk StreamChunk) (Request, []Event, error) {
	if !r.CanAcceptChunks() {
		return Request{}, nil, fmt.Errorf("%w: cannot add chunk to %s request %s", ErrInvalidRequestState, r.state, r.id)
	}
	chunks := make([]StreamChunk, len(r.chunks), len(r.chunks)+1)
	copy(chunks, r.chunks)
	r.chunks = append(chunks, chunk)
	r.state = RequestStateStreaming
	return r, []Event{ResponseChunkReceived{RequestID: r.id, Chunk: chunk, At: time.Now()}}, nil
}

// Complete transitions a Streaming request to Completed, attaching the given
// metadata. A zero timestamp means now. Fails from any other state, including
// Pending: a request that never streamed anything cannot complete.
func (r Request) Complete(meta CompletionMeta, at time.Time) (Request, []Event, error) {
	if r.state != RequestStateStreaming {
		return Request{}, nil, fmt.Errorf("%w: cannot complete %s request %s", ErrInvalidRequestState, r.state, r.id)
	}
	if meta.TotalTokens < 0 {
		return Request{}, nil, fmt.Errorf("%w: %d", ErrInvalidTokenCount, meta.TotalTokens)
	}
	if at.IsZero() {
		at = time.Now()
	}
	r.state = RequestStateCompleted
	r.completedAt = at
	r.totalTokens = meta.TotalTokens
	r.stopReason = meta.StopReason
	return r, []Event{RequestCompleted{RequestID: r.id, TotalTokens: meta.TotalTokens, StopReason: meta.StopReason, At: at}}, nil
}

// Fail transitions a Pending or Streaming request to Failed with a trimmed,
// non-empty reason. A zero timestamp means now. Fails once terminal.
func (r Request) Fail(reason string, at time.Time) (Request, []Event, error) {
	if r.state == RequestStateCompleted || r.state == RequestStateFailed {
		return Request{}, nil, fmt.Errorf("%w: cannot fail %s request %s", ErrInvalidRequestState, r.state, r.id)
	}
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return Request{}, nil, ErrEmptyErrorMessage
	}
	if at.IsZero() {
		at = time.Now()
	}
	r.state = RequestStateFailed
	r.completedAt = at
	r.failureReason = trimmed
	return r, []Event{RequestFailed{RequestID: r.id, Reason: trimmed, At: at}}, nil
}

// ID returns the request identifier.
func (r Request) ID() RequestID { return r.id }

// SessionID returns the owning session's identifier.
func (r Request) SessionID() SessionID { return r.sessionID }

// Message returns the client message that started the request.
func (r Request) Message() ClientMessage { return r.message }

// State returns the lifecycle state.
func (r Request) State() RequestState { return r.state }

// IsCompleted reports whether the request completed successfully.
func (r Request) IsCompleted() bool { return r.state == RequestStateCompleted }

// IsFailed reports whether the request ended in failure.
func (r Request) IsFailed() bool { return r.state == RequestStateFailed }

// CanAcceptChunks reports whether AddChunk would succeed.
func (r Request) CanAcceptChunks() bool {
	return r.state == RequestStatePending || r.state == RequestStateStreaming
}

// Chunks returns a copy of the accumulated chunks in arrival order.
func (r Request) Chunks() []StreamChunk {
	chunks := make([]StreamChunk, len(r.chunks))
	copy(chunks, r.chunks)
	return chunks
}

// FullResponse concatenates the content of all Delta chunks in order,
// ignoring Complete and Error markers. This is the assembled textual answer.
func (r Request) FullResponse() string {
	var b strings.Builder
	for _, chunk := range r.chunks {
		if chunk.Kind() == ChunkDelta {
			b.WriteString(chunk.Content())
		}
	}
	return b.String()
}

// ReceivedAt returns the request's arrival time.
func (r Request) ReceivedAt() time.Time { return r.receivedAt }

// CompletedAt returns the terminal time and whether the request is terminal.
func (r Request) CompletedAt() (time.Time, bool) {
	return r.completedAt, r.state == RequestStateCompleted || r.state == RequestStateFailed
}

// FailureReason returns the failure reason, empty unless Failed.
func (r Request) FailureReason() string { return r.failureReason }

// CompletionMeta returns the metadata attached at completion.
func (r Request) CompletionMeta() CompletionMeta {
	return CompletionMeta{TotalTokens: r.totalTokens, StopReason: r.stopReason}
}

// RehydrateRequest rebuilds a persisted request snapshot, enforcing the
// terminal-field invariants on load.
func RehydrateRequest(
	id RequestID,
	sessionID SessionID,
	message ClientMessage,
	state RequestState,
	chunks []StreamChunk,
	receivedAt, completedAt time.Time,
	failureReason string,
	meta CompletionMeta,
) (Request, error) {
	switch state {
	case RequestStatePending, RequestStateStreaming:
		if !completedAt.IsZero() || failureReason != "" {
			return Request{}, fmt.Errorf("%w: non-terminal request %s carries terminal fields", ErrInvalidRequestState, id)
		}
	case RequestStateCompleted:
		if completedAt.IsZero() {
			return Request{}, fmt.Errorf("%w: completed request %s missing completion time", ErrInvalidRequestState, id)
		}
	case RequestStateFailed:
		if completedAt.IsZero() || failureReason == "" {
			return Request{}, fmt.Errorf("%w: failed request %s missing failure fields", ErrInvalidRequestState, id)
		}
	default:
		return Request{}, fmt.Errorf("%w: %q", ErrInvalidRequestState, state)
	}
	copied := make([]StreamChunk, len(chunks))
	copy(copied, chunks)
	return Request{
		id:            id,
		sessionID:     sessionID,
		message:       message,
		state:         state,
		chunks:        copied,
		receivedAt:    receivedAt,
		completedAt:   completedAt,
		failureReason: failureReason,
		totalTokens:   meta.TotalTokens,
		stopReason:    meta.StopReason,
	}, nil
}

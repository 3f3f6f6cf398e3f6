package domain

import "time"

// Event is an immutable record of a fact that already happened, emitted by an
// aggregate transition for downstream notification and audit. Events carry
// data only, no behavior.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// SessionEstablished records that a new session was opened.
type SessionEstablished struct {
	SessionID SessionID
	At        time.Time
}

func (e SessionEstablished) EventName() string     { return "session_established" }
func (e SessionEstablished) OccurredAt() time.Time { return e.At }

// SessionClosed records that a session was closed, with an optional reason.
type SessionClosed struct {
	SessionID SessionID
	Reason    string
	At        time.Time
}

func (e SessionClosed) EventName() string     { return "session_closed" }
func (e SessionClosed) OccurredAt() time.Time { return e.At }

// RequestReceived records that a client message became a tracked request.
type RequestReceived struct {
	RequestID RequestID
	SessionID SessionID
	At        time.Time
}

func (e RequestReceived) EventName() string     { return "request_received" }
func (e RequestReceived) OccurredAt() time.Time { return e.At }

// ResponseChunkReceived records that a stream chunk was appended to a request.
type ResponseChunkReceived struct {
	RequestID RequestID
	Chunk     StreamChunk
	At        time.Time
}

func (e ResponseChunkReceived) EventName() string     { return "response_chunk_received" }
func (e ResponseChunkReceived) OccurredAt() time.Time { return e.At }

// RequestCompleted records that a request finished streaming successfully.
type RequestCompleted struct {
	RequestID   RequestID
	TotalTokens int // 0 = unknown
	StopReason  string
	At          time.Time
}

func (e RequestCompleted) EventName() string     { return "request_completed" }
func (e RequestCompleted) OccurredAt() time.Time { return e.At }

// RequestFailed records that a request ended in failure.
type RequestFailed struct {
	RequestID RequestID
	Reason    string
	At        time.Time
}

func (e RequestFailed) EventName() string     { return "request_failed" }
func (e RequestFailed) OccurredAt() time.Time { return e.At }

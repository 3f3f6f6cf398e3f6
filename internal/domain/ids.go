// Package domain holds the session/request bookkeeping core: validated value
// objects, the Session and Request aggregates, and the domain events they emit.
// Aggregates are immutable snapshots; every transition returns a new value.
package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SessionID identifies a conversational session. It is a distinct type from
// RequestID so the two cannot be swapped at compile time.
type SessionID string

// RequestID identifies a single streamed request within a session.
type RequestID string

// NewSessionID returns a fresh random SessionID.
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// NewRequestID returns a fresh random RequestID.
func NewRequestID() RequestID {
	return RequestID(uuid.New().String())
}

// ParseSessionID validates a client-supplied session identifier.
// The raw value is trimmed and must be non-empty.
func ParseSessionID(raw string) (SessionID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("session id: %w", ErrEmptyID)
	}
	return SessionID(trimmed), nil
}

// ParseRequestID validates a client-supplied request identifier.
func ParseRequestID(raw string) (RequestID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("request id: %w", ErrEmptyID)
	}
	return RequestID(trimmed), nil
}

func (id SessionID) String() string { return string(id) }

func (id RequestID) String() string { return string(id) }

package domain

import (
	"fmt"
	"time"
)

// SessionState is the lifecycle state of a session.
type SessionState string

const (
	SessionStateActive SessionState = "active"
	SessionStateClosed SessionState = "closed"
)

// Session owns a session's lifecycle and the ordered list of request ids that
// belong to it. It is a back-reference list only: Request aggregates are
// persisted and loaded independently, and no prompt or chunk payload ever
// lives on the session.
//
// State machine: Active --Close--> Closed (one-way). AddRequest is permitted
// only while Active.
type Session struct {
	id            SessionID
	state         SessionState
	requestIDs    []RequestID
	establishedAt time.Time
	closedAt      time.Time // zero unless closed
	closeReason   string
}

// EstablishSession opens a new Active session. A zero timestamp means now.
// Never fails; emits a single SessionEstablished event.
func EstablishSession(id SessionID, at time.Time) (Session, []Event) {
	if at.IsZero() {
		at = time.Now()
	}
	s := Session{
		id:            id,
		state:         SessionStateActive,
		establishedAt: at,
	}
	return s, []Event{SessionEstablished{SessionID: id, At: at}}
}

// AddRequest appends a request id to the session's list and returns the new
// snapshot. Duplicates are appended as-is: the aggregate does not deduplicate,
// the caller is responsible for supplying a fresh id. Emits no event, since
// request-level events already carry this fact.
func (s Session) AddRequest(id RequestID) (Session, error) {
	if s.state != SessionStateActive {
		return Session{}, fmt.Errorf("%w: cannot add request to %s session %s", ErrInvalidSessionState, s.state, s.id)
	}
	ids := make([]RequestID, len(s.requestIDs), len(s.requestIDs)+1)
	copy(ids, s.requestIDs)
	s.requestIDs = append(ids, id)
	return s, nil
}

// Close transitions the session to Closed. The reason is optional; a zero
// timestamp means now. Closing is one-way: a second Close fails.
func (s Session) Close(reason string, at time.Time) (Session, []Event, error) {
	if s.state != SessionStateActive {
		return Session{}, nil, fmt.Errorf("%w: cannot close %s session %s", ErrInvalidSessionState, s.state, s.id)
	}
	if at.IsZero() {
		at = time.Now()
	}
	s.state = SessionStateClosed
	s.closedAt = at
	s.closeReason = reason
	return s, []Event{SessionClosed{SessionID: s.id, Reason: reason, At: at}}, nil
}

// ID returns the session identifier.
func (s Session) ID() SessionID { return s.id }

// State returns the lifecycle state.
func (s Session) State() SessionState { return s.state }

// IsActive reports whether the session still accepts requests.
func (s Session) IsActive() bool { return s.state == SessionStateActive }

// IsClosed reports whether the session has been closed.
func (s Session) IsClosed() bool { return s.state == SessionStateClosed }

// RequestIDs returns a copy of the request id list in insertion order.
func (s Session) RequestIDs() []RequestID {
	ids := make([]RequestID, len(s.requestIDs))
	copy(ids, s.requestIDs)
	return ids
}

// RequestCount returns the number of requests recorded on the session.
func (s Session) RequestCount() int { return len(s.requestIDs) }

// HasRequest reports whether the given request id appears in the list.
func (s Session) HasRequest(id RequestID) bool {
	for _, existing := range s.requestIDs {
		if existing == id {
			return true
		}
	}
	return false
}

// EstablishedAt returns the session's establishment time.
func (s Session) EstablishedAt() time.Time { return s.establishedAt }

// ClosedAt returns the close time and whether the session is closed.
func (s Session) ClosedAt() (time.Time, bool) {
	return s.closedAt, s.state == SessionStateClosed
}

// CloseReason returns the close reason, empty while Active or when none was given.
func (s Session) CloseReason() string { return s.closeReason }

// Duration returns the closed-minus-established interval. Undefined (false)
// while the session is Active.
func (s Session) Duration() (time.Duration, bool) {
	if s.state != SessionStateClosed {
		return 0, false
	}
	return s.closedAt.Sub(s.establishedAt), true
}

// RehydrateSession rebuilds a persisted session snapshot, enforcing the
// closedAt-iff-Closed invariant on load.
func RehydrateSession(id SessionID, state SessionState, requestIDs []RequestID, establishedAt, closedAt time.Time, closeReason string) (Session, error) {
	switch state {
	case SessionStateActive:
		if !closedAt.IsZero() || closeReason != "" {
			return Session{}, fmt.Errorf("%w: active session %s carries close fields", ErrInvalidSessionState, id)
		}
	case SessionStateClosed:
		if closedAt.IsZero() {
			return Session{}, fmt.Errorf("%w: closed session %s missing close time", ErrInvalidSessionState, id)
		}
	default:
		return Session{}, fmt.Errorf("%w: %q", ErrInvalidSessionState, state)
	}
	ids := make([]RequestID, len(requestIDs))
	copy(ids, requestIDs)
	return Session{
		id:            id,
		state:         state,
		requestIDs:    ids,
		establishedAt: establishedAt,
		closedAt:      closedAt,
		closeReason:   closeReason,
	}, nil
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/gatebook/internal/domain"
)

// EstablishSession opens a new session and persists it.
type EstablishSession struct {
	provider UnitOfWorkProvider
}

// NewEstablishSession creates the use case.
func NewEstablishSession(provider UnitOfWorkProvider) *EstablishSession {
	return &EstablishSession{provider: provider}
}

// EstablishSessionInput carries the parameters: an optional client-supplied
// session id (empty means generate one) and an optional timestamp (zero means
// now).
type EstablishSessionInput struct {
	SessionID domain.SessionID
	At        time.Time
}

// SessionResult is the outcome of a session-level use case.
type SessionResult struct {
	Session domain.Session
	Events  []domain.Event
}

// Execute establishes the session. Establishing an id that already exists is
// idempotent: the stored session is returned unchanged with no events.
func (uc *EstablishSession) Execute(ctx context.Context, in EstablishSessionInput) (SessionResult, error) {
	return execute(ctx, "EstablishSession", uc.provider, func(uow UnitOfWork) (SessionResult, error) {
		id := in.SessionID
		if id == "" {
			id = domain.NewSessionID()
		} else if existing, found, err := uow.Sessions().FindByID(ctx, id); err != nil {
			return SessionResult{}, fmt.Errorf("find session: %w", err)
		} else if found {
			return SessionResult{Session: existing}, nil
		}

		session, events := domain.EstablishSession(id, in.At)
		if err := uow.Sessions().Save(ctx, session); err != nil {
			return SessionResult{}, fmt.Errorf("save session: %w", err)
		}

		log.Info().Str("sessionId", id.String()).Msg("session established")
		return SessionResult{Session: session, Events: events}, nil
	})
}

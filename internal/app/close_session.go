package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/gatebook/internal/domain"
)

// CloseSession closes an active session. Closing is one-way.
type CloseSession struct {
	provider UnitOfWorkProvider
}

// NewCloseSession creates the use case.
func NewCloseSession(provider UnitOfWorkProvider) *CloseSession {
	return &CloseSession{provider: provider}
}

// CloseSessionInput carries the target session, an optional reason, and an
// optional timestamp (zero means now).
type CloseSessionInput struct {
	SessionID domain.SessionID
	Reason    string
	At        time.Time
}

// Execute loads the session and closes it. The aggregate rejects a second close.
func (uc *CloseSession) Execute(ctx context.Context, in CloseSessionInput) (SessionResult, error) {
	return execute(ctx, "CloseSession", uc.provider, func(uow UnitOfWork) (SessionResult, error) {
		session, found, err := uow.Sessions().FindByID(ctx, in.SessionID)
		if err != nil {
			return SessionResult{}, fmt.Errorf("find session: %w", err)
		}
		if !found {
			return SessionResult{}, ErrSessionNotFound
		}

		updated, events, err := session.Close(in.Reason, in.At)
		if err != nil {
			return SessionResult{}, err
		}

		if err := uow.Sessions().Save(ctx, updated); err != nil {
			return SessionResult{}, fmt.Errorf("save session: %w", err)
		}

		log.Info().
			Str("sessionId", updated.ID().String()).
			Str("reason", in.Reason).
			Int("requests", updated.RequestCount()).
			Msg("session closed")
		return SessionResult{Session: updated, Events: events}, nil
	})
}

package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/gatebook/internal/domain"
)

// PurgeSession deletes a closed session and every request that belongs to it.
// Active sessions cannot be purged.
type PurgeSession struct {
	provider UnitOfWorkProvider
}

// NewPurgeSession creates the use case.
func NewPurgeSession(provider UnitOfWorkProvider) *PurgeSession {
	return &PurgeSession{provider: provider}
}

// PurgeSessionInput names the session to purge.
type PurgeSessionInput struct {
	SessionID domain.SessionID
}

// PurgeSessionResult reports how many requests were removed with the session.
type PurgeSessionResult struct {
	SessionID       domain.SessionID
	RequestsDeleted int
}

// Execute deletes the session record and all of its request records under one
// unit of work.
func (uc *PurgeSession) Execute(ctx context.Context, in PurgeSessionInput) (PurgeSessionResult, error) {
	return execute(ctx, "PurgeSession", uc.provider, func(uow UnitOfWork) (PurgeSessionResult, error) {
		session, found, err := uow.Sessions().FindByID(ctx, in.SessionID)
		if err != nil {
			return PurgeSessionResult{}, fmt.Errorf("find session: %w", err)
		}
		if !found {
			return PurgeSessionResult{}, ErrSessionNotFound
		}
		if !session.IsClosed() {
			return PurgeSessionResult{}, fmt.Errorf("%w: cannot purge %s session %s", domain.ErrInvalidSessionState, session.State(), session.ID())
		}

		requests, err := uow.Requests().FindBySessionID(ctx, session.ID())
		if err != nil {
			return PurgeSessionResult{}, fmt.Errorf("list requests: %w", err)
		}
		for _, request := range requests {
			if err := uow.Requests().Delete(ctx, request.ID()); err != nil {
				return PurgeSessionResult{}, fmt.Errorf("delete request %s: %w", request.ID(), err)
			}
		}
		if err := uow.Sessions().Delete(ctx, session.ID()); err != nil {
			return PurgeSessionResult{}, fmt.Errorf("delete session: %w", err)
		}

		log.Info().
			Str("sessionId", session.ID().String()).
			Int("requestsDeleted", len(requests)).
			Msg("session purged")
		return PurgeSessionResult{SessionID: session.ID(), RequestsDeleted: len(requests)}, nil
	})
}

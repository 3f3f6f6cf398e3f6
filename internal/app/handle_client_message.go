package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/gatebook/internal/domain"
)

// HandleClientMessage turns an incoming client message into a tracked request
// and records it on its session. This is the one use case that mutates two
// aggregate types, so both saves ride the same unit of work.
type HandleClientMessage struct {
	provider     UnitOfWorkProvider
	newRequestID func() domain.RequestID
}

// NewHandleClientMessage creates the use case with the process-wide random
// request-id source.
func NewHandleClientMessage(provider UnitOfWorkProvider) *HandleClientMessage {
	return &HandleClientMessage{provider: provider, newRequestID: domain.NewRequestID}
}

// HandleClientMessageInput carries the target session and the message.
type HandleClientMessageInput struct {
	SessionID domain.SessionID
	Message   domain.ClientMessage
}

// HandleClientMessageResult returns both updated aggregates plus the emitted
// events, request-creation events first.
type HandleClientMessageResult struct {
	Session domain.Session
	Request domain.Request
	Events  []domain.Event
}

// Execute loads the session, creates a Pending request for the message,
// appends the request id to the session, and persists both atomically.
func (uc *HandleClientMessage) Execute(ctx context.Context, in HandleClientMessageInput) (HandleClientMessageResult, error) {
	return execute(ctx, "HandleClientMessage", uc.provider, func(uow UnitOfWork) (HandleClientMessageResult, error) {
		session, found, err := uow.Sessions().FindByID(ctx, in.SessionID)
		if err != nil {
			return HandleClientMessageResult{}, fmt.Errorf("find session: %w", err)
		}
		if !found {
			return HandleClientMessageResult{}, ErrSessionNotFound
		}
		if !session.IsActive() {
			return HandleClientMessageResult{}, ErrSessionNotActive
		}

		requestID := uc.newRequestID()
		request, requestEvents := domain.NewRequest(requestID, session.ID(), in.Message, time.Time{})

		updated, err := session.AddRequest(requestID)
		if err != nil {
			return HandleClientMessageResult{}, err
		}

		if err := uow.Requests().Save(ctx, request); err != nil {
			return HandleClientMessageResult{}, fmt.Errorf("save request: %w", err)
		}
		if err := uow.Sessions().Save(ctx, updated); err != nil {
			return HandleClientMessageResult{}, fmt.Errorf("save session: %w", err)
		}

		log.Info().
			Str("sessionId", session.ID().String()).
			Str("requestId", requestID.String()).
			Int("sessionRequests", updated.RequestCount()).
			Msg("client message accepted")

		return HandleClientMessageResult{
			Session: updated,
			Request: request,
			Events:  requestEvents,
		}, nil
	})
}

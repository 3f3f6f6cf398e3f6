package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/gatebook/internal/domain"
)

// FailRequest marks a non-terminal request as failed.
type FailRequest struct {
	provider UnitOfWorkProvider
}

// NewFailRequest creates the use case.
func NewFailRequest(provider UnitOfWorkProvider) *FailRequest {
	return &FailRequest{provider: provider}
}

// FailRequestInput carries the target request, the failure reason, and an
// optional timestamp (zero means now).
type FailRequestInput struct {
	RequestID domain.RequestID
	Reason    string
	At        time.Time
}

// Execute loads the request and fails it. The aggregate rejects the
// transition once the request is Completed or Failed.
func (uc *FailRequest) Execute(ctx context.Context, in FailRequestInput) (RequestResult, error) {
	return execute(ctx, "FailRequest", uc.provider, func(uow UnitOfWork) (RequestResult, error) {
		request, found, err := uow.Requests().FindByID(ctx, in.RequestID)
		if err != nil {
			return RequestResult{}, fmt.Errorf("find request: %w", err)
		}
		if !found {
			return RequestResult{}, ErrRequestNotFound
		}

		updated, events, err := request.Fail(in.Reason, in.At)
		if err != nil {
			return RequestResult{}, err
		}

		if err := uow.Requests().Save(ctx, updated); err != nil {
			return RequestResult{}, fmt.Errorf("save request: %w", err)
		}

		log.Warn().
			Str("requestId", updated.ID().String()).
			Str("reason", updated.FailureReason()).
			Msg("request failed")
		return RequestResult{Request: updated, Events: events}, nil
	})
}

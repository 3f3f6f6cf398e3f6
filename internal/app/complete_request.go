package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/gatebook/internal/domain"
)

// CompleteRequest marks a streaming request as successfully finished.
type CompleteRequest struct {
	provider UnitOfWorkProvider
}

// NewCompleteRequest creates the use case.
func NewCompleteRequest(provider UnitOfWorkProvider) *CompleteRequest {
	return &CompleteRequest{provider: provider}
}

// CompleteRequestInput carries the target request, optional completion
// metadata, and an optional timestamp (zero means now).
type CompleteRequestInput struct {
	RequestID domain.RequestID
	Meta      domain.CompletionMeta
	At        time.Time
}

// Execute loads the request and completes it. The aggregate enforces the
// Streaming precondition.
func (uc *CompleteRequest) Execute(ctx context.Context, in CompleteRequestInput) (RequestResult, error) {
	return execute(ctx, "CompleteRequest", uc.provider, func(uow UnitOfWork) (RequestResult, error) {
		request, found, err := uow.Requests().FindByID(ctx, in.RequestID)
		if err != nil {
			return RequestResult{}, fmt.Errorf("find request: %w", err)
		}
		if !found {
			return RequestResult{}, ErrRequestNotFound
		}

		updated, events, err := request.Complete(in.Meta, in.At)
		if err != nil {
			return RequestResult{}, err
		}

		if err := uow.Requests().Save(ctx, updated); err != nil {
			return RequestResult{}, fmt.Errorf("save request: %w", err)
		}

		log.Info().
			Str("requestId", updated.ID().String()).
			Int("chunks", len(updated.Chunks())).
			Int("totalTokens", in.Meta.TotalTokens).
			Msg("request completed")
		return RequestResult{Request: updated, Events: events}, nil
	})
}

package app

import (
	"context"
	"fmt"

	"github.com/thebtf/gatebook/internal/domain"
)

// HandleStreamChunk appends a response chunk to a request and persists the
// updated aggregate.
type HandleStreamChunk struct {
	provider UnitOfWorkProvider
}

// NewHandleStreamChunk creates the use case.
func NewHandleStreamChunk(provider UnitOfWorkProvider) *HandleStreamChunk {
	return &HandleStreamChunk{provider: provider}
}

// HandleStreamChunkInput carries the target request and the chunk.
type HandleStreamChunkInput struct {
	RequestID domain.RequestID
	Chunk     domain.StreamChunk
}

// RequestResult is the outcome of a request-level use case.
type RequestResult struct {
	Request domain.Request
	Events  []domain.Event
}

// Execute loads the request and applies the chunk. The aggregate's own guard
// rejects chunks once the request is terminal.
func (uc *HandleStreamChunk) Execute(ctx context.Context, in HandleStreamChunkInput) (RequestResult, error) {
	return execute(ctx, "HandleStreamChunk", uc.provider, func(uow UnitOfWork) (RequestResult, error) {
		request, found, err := uow.Requests().FindByID(ctx, in.RequestID)
		if err != nil {
			return RequestResult{}, fmt.Errorf("find request: %w", err)
		}
		if !found {
			return RequestResult{}, ErrRequestNotFound
		}

		updated, events, err := request.AddChunk(in.Chunk)
		if err != nil {
			return RequestResult{}, err
		}

		if err := uow.Requests().Save(ctx, updated); err != nil {
			return RequestResult{}, fmt.Errorf("save request: %w", err)
		}
		return RequestResult{Request: updated, Events: events}, nil
	})
}

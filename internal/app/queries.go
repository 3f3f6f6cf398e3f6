package app

import (
	"context"
	"fmt"

	"github.com/thebtf/gatebook/internal/domain"
)

// Queries is the read side: single-aggregate lookups the transport needs.
// Each query runs in its own unit of work and issues no saves.
type Queries struct {
	provider UnitOfWorkProvider
}

// NewQueries creates the query facade.
func NewQueries(provider UnitOfWorkProvider) *Queries {
	return &Queries{provider: provider}
}

// GetSession returns the session with the given id.
func (q *Queries) GetSession(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	return execute(ctx, "GetSession", q.provider, func(uow UnitOfWork) (domain.Session, error) {
		session, found, err := uow.Sessions().FindByID(ctx, id)
		if err != nil {
			return domain.Session{}, fmt.Errorf("find session: %w", err)
		}
		if !found {
			return domain.Session{}, ErrSessionNotFound
		}
		return session, nil
	})
}

// GetRequest returns the request with the given id.
func (q *Queries) GetRequest(ctx context.Context, id domain.RequestID) (domain.Request, error) {
	return execute(ctx, "GetRequest", q.provider, func(uow UnitOfWork) (domain.Request, error) {
		request, found, err := uow.Requests().FindByID(ctx, id)
		if err != nil {
			return domain.Request{}, fmt.Errorf("find request: %w", err)
		}
		if !found {
			return domain.Request{}, ErrRequestNotFound
		}
		return request, nil
	})
}

// SessionRequests is the result of ListSessionRequests.
type SessionRequests struct {
	Requests []domain.Request
	Total    int64
}

// ListSessionRequests returns every request belonging to a session, plus the
// storage-side count.
func (q *Queries) ListSessionRequests(ctx context.Context, id domain.SessionID) (SessionRequests, error) {
	return execute(ctx, "ListSessionRequests", q.provider, func(uow UnitOfWork) (SessionRequests, error) {
		exists, err := uow.Sessions().Exists(ctx, id)
		if err != nil {
			return SessionRequests{}, fmt.Errorf("check session: %w", err)
		}
		if !exists {
			return SessionRequests{}, ErrSessionNotFound
		}

		requests, err := uow.Requests().FindBySessionID(ctx, id)
		if err != nil {
			return SessionRequests{}, fmt.Errorf("list requests: %w", err)
		}
		total, err := uow.Requests().CountBySessionID(ctx, id)
		if err != nil {
			return SessionRequests{}, fmt.Errorf("count requests: %w", err)
		}
		return SessionRequests{Requests: requests, Total: total}, nil
	})
}

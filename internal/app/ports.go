// Package app holds the transactional use cases that orchestrate the domain
// aggregates, and the persistence contracts they depend on. Storage engines
// implement the contracts; use cases never see a concrete store.
package app

import (
	"context"

	"github.com/thebtf/gatebook/internal/domain"
)

// SessionRepository is the persistence contract for Session aggregates.
// FindByID reports found=false, not an error, when no record exists.
type SessionRepository interface {
	Save(ctx context.Context, session domain.Session) error
	FindByID(ctx context.Context, id domain.SessionID) (domain.Session, bool, error)
	Delete(ctx context.Context, id domain.SessionID) error
	Exists(ctx context.Context, id domain.SessionID) (bool, error)
}

// RequestRepository is the persistence contract for Request aggregates.
type RequestRepository interface {
	Save(ctx context.Context, request domain.Request) error
	FindByID(ctx context.Context, id domain.RequestID) (domain.Request, bool, error)
	FindBySessionID(ctx context.Context, id domain.SessionID) ([]domain.Request, error)
	Delete(ctx context.Context, id domain.RequestID) error
	Exists(ctx context.Context, id domain.RequestID) (bool, error)
	CountBySessionID(ctx context.Context, id domain.SessionID) (int64, error)
}

// UnitOfWork binds one session repository and one request repository to a
// single atomic commit/rollback decision: a successful Commit durably
// persists every Save issued against the repositories obtained from it.
// Commit and Rollback are each safe to call once per Begin.
type UnitOfWork interface {
	Sessions() SessionRepository
	Requests() RequestRepository
	Commit() error
	Rollback() error
}

// UnitOfWorkProvider opens units of work. Implemented by each storage engine.
type UnitOfWorkProvider interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

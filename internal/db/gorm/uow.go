package gorm

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/thebtf/gatebook/internal/app"
)

// Compile-time interface compliance checks.
var (
	_ app.UnitOfWork         = (*unitOfWork)(nil)
	_ app.UnitOfWorkProvider = (*Provider)(nil)
	_ app.SessionRepository  = (*SessionRepo)(nil)
	_ app.RequestRepository  = (*RequestRepo)(nil)
)

// unitOfWork binds both repositories to one database transaction.
type unitOfWork struct {
	tx       *gorm.DB
	sessions *SessionRepo
	requests *RequestRepo
	finished bool
}

func (u *unitOfWork) Sessions() app.SessionRepository { return u.sessions }
func (u *unitOfWork) Requests() app.RequestRepository { return u.requests }

// Commit commits the transaction. Safe to call again after the unit of work
// has finished.
func (u *unitOfWork) Commit() error {
	if u.finished {
		return nil
	}
	u.finished = true
	if err := u.tx.Commit().Error; err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards the transaction. Safe to call again after the unit of
// work has finished.
func (u *unitOfWork) Rollback() error {
	if u.finished {
		return nil
	}
	u.finished = true
	if err := u.tx.Rollback().Error; err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// Provider opens transaction-scoped units of work against a Store. The store
// can be swapped at runtime when the database file has to be recreated.
type Provider struct {
	mu    sync.RWMutex
	store *Store
}

// NewProvider creates a unit-of-work provider bound to the store.
func NewProvider(store *Store) *Provider {
	return &Provider{store: store}
}

// Reset rebinds the provider to a freshly opened store and returns the
// previous one so the caller can close it.
func (p *Provider) Reset(store *Store) *Store {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.store
	p.store = store
	return old
}

// Begin opens a database transaction and binds both repositories to it.
func (p *Provider) Begin(ctx context.Context) (app.UnitOfWork, error) {
	p.mu.RLock()
	store := p.store
	p.mu.RUnlock()

	tx := store.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	return &unitOfWork{
		tx:       tx,
		sessions: NewSessionRepo(tx),
		requests: NewRequestRepo(tx),
	}, nil
}

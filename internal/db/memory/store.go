// Package memory provides an in-process storage engine implementing the same
// persistence contracts as the gorm engine. Used for the memory driver and as
// the storage fixture in tests; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/thebtf/gatebook/internal/app"
	"github.com/thebtf/gatebook/internal/domain"
)

// Compile-time interface compliance checks.
var (
	_ app.UnitOfWork         = (*unitOfWork)(nil)
	_ app.UnitOfWorkProvider = (*Store)(nil)
)

// Store holds committed aggregates. Aggregates are immutable snapshots, so
// storing them by value is safe without copying.
type Store struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]domain.Session
	requests map[domain.RequestID]requestEntry
	nextSeq  int64
}

// requestEntry pairs a request with its arrival sequence so per-session
// listings keep insertion order.
type requestEntry struct {
	request domain.Request
	seq     int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[domain.SessionID]domain.Session),
		requests: make(map[domain.RequestID]requestEntry),
	}
}

// Begin opens a unit of work whose writes stay in a private overlay until
// Commit applies them to the store in one locked step.
func (s *Store) Begin(_ context.Context) (app.UnitOfWork, error) {
	return &unitOfWork{
		store:          s,
		sessionWrites:  make(map[domain.SessionID]domain.Session),
		sessionDeletes: make(map[domain.SessionID]bool),
		requestWrites:  make(map[domain.RequestID]domain.Request),
		requestDeletes: make(map[domain.RequestID]bool),
	}, nil
}

type unitOfWork struct {
	store          *Store
	sessionWrites  map[domain.SessionID]domain.Session
	sessionDeletes map[domain.SessionID]bool
	requestWrites  map[domain.RequestID]domain.Request
	requestDeletes map[domain.RequestID]bool
	requestOrder   []domain.RequestID // write order of new requests
	finished       bool
}

func (u *unitOfWork) Sessions() app.SessionRepository { return &sessionRepo{u: u} }
func (u *unitOfWork) Requests() app.RequestRepository { return &requestRepo{u: u} }

// Commit applies every buffered write and delete under the store lock.
func (u *unitOfWork) Commit() error {
	if u.finished {
		return nil
	}
	u.finished = true

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	for id := range u.sessionDeletes {
		delete(u.store.sessions, id)
	}
	for id, session := range u.sessionWrites {
		u.store.sessions[id] = session
	}
	for id := range u.requestDeletes {
		delete(u.store.requests, id)
	}
	for _, id := range u.requestOrder {
		request, ok := u.requestWrites[id]
		if !ok {
			continue
		}
		entry, exists := u.store.requests[id]
		if !exists {
			u.store.nextSeq++
			entry.seq = u.store.nextSeq
		}
		entry.request = request
		u.store.requests[id] = entry
	}
	return nil
}

// Rollback discards the overlay.
func (u *unitOfWork) Rollback() error {
	u.finished = true
	return nil
}

type sessionRepo struct {
	u *unitOfWork
}

func (r *sessionRepo) Save(_ context.Context, session domain.Session) error {
	delete(r.u.sessionDeletes, session.ID())
	r.u.sessionWrites[session.ID()] = session
	return nil
}

func (r *sessionRepo) FindByID(_ context.Context, id domain.SessionID) (domain.Session, bool, error) {
	if r.u.sessionDeletes[id] {
		return domain.Session{}, false, nil
	}
	if session, ok := r.u.sessionWrites[id]; ok {
		return session, true, nil
	}
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	session, ok := r.u.store.sessions[id]
	return session, ok, nil
}

func (r *sessionRepo) Delete(_ context.Context, id domain.SessionID) error {
	delete(r.u.sessionWrites, id)
	r.u.sessionDeletes[id] = true
	return nil
}

func (r *sessionRepo) Exists(ctx context.Context, id domain.SessionID) (bool, error) {
	_, found, err := r.FindByID(ctx, id)
	return found, err
}

type requestRepo struct {
	u *unitOfWork
}

func (r *requestRepo) Save(_ context.Context, request domain.Request) error {
	delete(r.u.requestDeletes, request.ID())
	if _, buffered := r.u.requestWrites[request.ID()]; !buffered {
		r.u.requestOrder = append(r.u.requestOrder, request.ID())
	}
	r.u.requestWrites[request.ID()] = request
	return nil
}

func (r *requestRepo) FindByID(_ context.Context, id domain.RequestID) (domain.Request, bool, error) {
	if r.u.requestDeletes[id] {
		return domain.Request{}, false, nil
	}
	if request, ok := r.u.requestWrites[id]; ok {
		return request, true, nil
	}
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	entry, ok := r.u.store.requests[id]
	return entry.request, ok, nil
}

func (r *requestRepo) FindBySessionID(_ context.Context, id domain.SessionID) ([]domain.Request, error) {
	type ordered struct {
		request domain.Request
		seq     int64
	}
	var result []ordered

	r.u.store.mu.Lock()
	committedSeq := make(map[domain.RequestID]int64, len(r.u.store.requests))
	for reqID, entry := range r.u.store.requests {
		committedSeq[reqID] = entry.seq
		if r.u.requestDeletes[reqID] {
			continue
		}
		if _, overridden := r.u.requestWrites[reqID]; overridden {
			continue
		}
		if entry.request.SessionID() == id {
			result = append(result, ordered{request: entry.request, seq: entry.seq})
		}
	}
	maxSeq := r.u.store.nextSeq
	r.u.store.mu.Unlock()

	// Buffered writes keep their committed position when they update an
	// existing row; new rows sort last, in write order.
	for i, reqID := range r.u.requestOrder {
		request, ok := r.u.requestWrites[reqID]
		if !ok || request.SessionID() != id {
			continue
		}
		seq, committed := committedSeq[reqID]
		if !committed {
			seq = maxSeq + int64(i) + 1
		}
		result = append(result, ordered{request: request, seq: seq})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].seq < result[j].seq })
	requests := make([]domain.Request, len(result))
	for i, entry := range result {
		requests[i] = entry.request
	}
	return requests, nil
}

func (r *requestRepo) Delete(_ context.Context, id domain.RequestID) error {
	delete(r.u.requestWrites, id)
	r.u.requestDeletes[id] = true
	return nil
}

func (r *requestRepo) Exists(ctx context.Context, id domain.RequestID) (bool, error) {
	_, found, err := r.FindByID(ctx, id)
	return found, err
}

func (r *requestRepo) CountBySessionID(ctx context.Context, id domain.SessionID) (int64, error) {
	requests, err := r.FindBySessionID(ctx, id)
	if err != nil {
		return 0, err
	}
	return int64(len(requests)), nil
}

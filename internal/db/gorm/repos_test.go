package gorm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/gatebook/internal/domain"
)

func baseTime() time.Time {
	return time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC)
}

func buildMessage(t *testing.T) domain.ClientMessage {
	t.Helper()
	message, err := domain.NewClientMessage("explain goroutines")
	require.NoError(t, err)
	message, err = message.WithProviderHint(domain.ProviderClaude)
	require.NoError(t, err)
	message, err = message.WithMaxTokens(2048)
	require.NoError(t, err)
	return message
}

func TestSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := NewSessionRepo(store.DB)

	session, _ := domain.EstablishSession("sess-1", baseTime())
	session, err := session.AddRequest("req-1")
	require.NoError(t, err)
	session, err = session.AddRequest("req-2")
	require.NoError(t, err)
	session, err = session.AddRequest("req-1") // duplicates survive storage
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, session))

	loaded, found, err := repo.FindByID(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, session.ID(), loaded.ID())
	assert.True(t, loaded.IsActive())
	assert.Equal(t, []domain.RequestID{"req-1", "req-2", "req-1"}, loaded.RequestIDs())
	assert.True(t, loaded.EstablishedAt().Equal(baseTime()))
	_, closed := loaded.ClosedAt()
	assert.False(t, closed)
}

func TestClosedSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := NewSessionRepo(store.DB)

	session, _ := domain.EstablishSession("sess-1", baseTime())
	closedAt := baseTime().Add(45 * time.Minute)
	session, _, err := session.Close("client disconnect", closedAt)
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, session))

	loaded, found, err := repo.FindByID(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, loaded.IsClosed())
	assert.Equal(t, "client disconnect", loaded.CloseReason())
	got, ok := loaded.ClosedAt()
	require.True(t, ok)
	assert.True(t, got.Equal(closedAt))
	duration, ok := loaded.Duration()
	require.True(t, ok)
	assert.Equal(t, 45*time.Minute, duration)
}

func TestSessionSaveIsUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := NewSessionRepo(store.DB)

	session, _ := domain.EstablishSession("sess-1", baseTime())
	require.NoError(t, repo.Save(ctx, session))

	updated, err := session.AddRequest("req-1")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, updated))

	loaded, found, err := repo.FindByID(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, loaded.RequestCount())
}

func TestSessionFindMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := NewSessionRepo(store.DB)

	_, found, err := repo.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, found)

	exists, err := repo.Exists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting a missing row is not an error.
	assert.NoError(t, repo.Delete(ctx, "nope"))
}

func TestRequestRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := NewRequestRepo(store.DB)

	request, _ := domain.NewRequest("req-1", "sess-1", buildMessage(t), baseTime())
	for _, content := range []string{"Go routines", " are cheap"} {
		chunk, err := domain.NewDeltaChunk(content)
		require.NoError(t, err)
		var addErr error
		request, _, addErr = request.AddChunk(chunk)
		require.NoError(t, addErr)
	}
	completedAt := baseTime().Add(3 * time.Second)
	request, _, err := request.Complete(domain.CompletionMeta{TotalTokens: 17, StopReason: "end_turn"}, completedAt)
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, request))

	loaded, found, err := repo.FindByID(ctx, "req-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, request.ID(), loaded.ID())
	assert.Equal(t, domain.SessionID("sess-1"), loaded.SessionID())
	assert.True(t, loaded.IsCompleted())
	assert.Equal(t, "Go routines are cheap", loaded.FullResponse())
	assert.Len(t, loaded.Chunks(), 2)
	assert.True(t, loaded.ReceivedAt().Equal(baseTime()))
	got, ok := loaded.CompletedAt()
	require.True(t, ok)
	assert.True(t, got.Equal(completedAt))
	assert.Equal(t, 17, loaded.CompletionMeta().TotalTokens)
	assert.Equal(t, "end_turn", loaded.CompletionMeta().StopReason)

	message := loaded.Message()
	assert.Equal(t, "explain goroutines", message.Prompt())
	provider, ok := message.ProviderHint()
	require.True(t, ok)
	assert.Equal(t, domain.ProviderClaude, provider)
	maxTokens, ok := message.MaxTokens()
	require.True(t, ok)
	assert.Equal(t, 2048, maxTokens)
}

func TestFailedRequestRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := NewRequestRepo(store.DB)

	request, _ := domain.NewRequest("req-1", "sess-1", buildMessage(t), baseTime())
	request, _, err := request.Fail("provider timeout", baseTime().Add(time.Second))
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, request))

	loaded, found, err := repo.FindByID(ctx, "req-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, loaded.IsFailed())
	assert.Equal(t, "provider timeout", loaded.FailureReason())
	assert.False(t, loaded.CanAcceptChunks())
}

func TestFindBySessionIDOrdersByArrival(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := NewRequestRepo(store.DB)

	message := buildMessage(t)
	for i, id := range []domain.RequestID{"req-a", "req-b", "req-c"} {
		request, _ := domain.NewRequest(id, "sess-1", message, baseTime().Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.Save(ctx, request))
	}
	other, _ := domain.NewRequest("req-x", "sess-2", message, baseTime())
	require.NoError(t, repo.Save(ctx, other))

	requests, err := repo.FindBySessionID(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.Equal(t, domain.RequestID("req-a"), requests[0].ID())
	assert.Equal(t, domain.RequestID("req-b"), requests[1].ID())
	assert.Equal(t, domain.RequestID("req-c"), requests[2].ID())

	count, err := repo.CountBySessionID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestUnitOfWorkCommitPersists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	provider := NewProvider(store)

	uow, err := provider.Begin(ctx)
	require.NoError(t, err)
	session, _ := domain.EstablishSession("sess-1", baseTime())
	require.NoError(t, uow.Sessions().Save(ctx, session))
	require.NoError(t, uow.Commit())

	exists, err := NewSessionRepo(store.DB).Exists(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUnitOfWorkRollbackDiscards(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	provider := NewProvider(store)

	uow, err := provider.Begin(ctx)
	require.NoError(t, err)
	session, _ := domain.EstablishSession("sess-1", baseTime())
	require.NoError(t, uow.Sessions().Save(ctx, session))
	request, _ := domain.NewRequest("req-1", "sess-1", buildMessage(t), baseTime())
	require.NoError(t, uow.Requests().Save(ctx, request))
	require.NoError(t, uow.Rollback())

	exists, err := NewSessionRepo(store.DB).Exists(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = NewRequestRepo(store.DB).Exists(ctx, "req-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUnitOfWorkFinishedIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	provider := NewProvider(store)

	uow, err := provider.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	assert.NoError(t, uow.Commit())
	assert.NoError(t, uow.Rollback())
}

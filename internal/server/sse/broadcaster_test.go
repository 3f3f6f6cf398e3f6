package sse

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndRemoveClient(t *testing.T) {
	b := NewBroadcaster()
	assert.Equal(t, 0, b.ClientCount())

	rec := httptest.NewRecorder()
	client, err := b.AddClient(rec)
	require.NoError(t, err)
	assert.Equal(t, 1, b.ClientCount())

	b.RemoveClient(client)
	assert.Equal(t, 0, b.ClientCount())

	select {
	case <-client.Done:
	default:
		t.Fatal("Done channel should be closed after removal")
	}

	// Removing twice is harmless.
	b.RemoveClient(client)
	assert.Equal(t, 0, b.ClientCount())
}

func TestBroadcastWritesSSEFrames(t *testing.T) {
	b := NewBroadcaster()
	first := httptest.NewRecorder()
	second := httptest.NewRecorder()
	_, err := b.AddClient(first)
	require.NoError(t, err)
	_, err = b.AddClient(second)
	require.NoError(t, err)

	b.Broadcast(map[string]string{"event": "session_established", "session_id": "sess-1"})

	for _, rec := range []*httptest.ResponseRecorder{first, second} {
		body := rec.Body.String()
		assert.Contains(t, body, "data: ")
		assert.Contains(t, body, `"session_established"`)
		assert.Contains(t, body, "\n\n")
		assert.True(t, rec.Flushed)
	}
}

func TestBroadcastWithNoClients(t *testing.T) {
	b := NewBroadcaster()
	// Must not panic or block.
	b.Broadcast(map[string]string{"event": "session_closed"})
}

// stalledWriter blocks in Write until released, then fails. This models a
// client whose connection hangs past the write timeout and only then errors
// out, after the broadcast has already moved on.
type stalledWriter struct {
	header  http.Header
	release chan struct{}
}

func (w *stalledWriter) Header() http.Header { return w.header }

func (w *stalledWriter) Write([]byte) (int, error) {
	<-w.release
	return 0, errors.New("connection reset")
}

func (w *stalledWriter) WriteHeader(int) {}

func (w *stalledWriter) Flush() {}

func TestBroadcastSurvivesStalledClient(t *testing.T) {
	b := NewBroadcaster()
	stalled := &stalledWriter{header: http.Header{}, release: make(chan struct{})}
	client, err := b.AddClient(stalled)
	require.NoError(t, err)
	healthy := httptest.NewRecorder()
	_, err = b.AddClient(healthy)
	require.NoError(t, err)

	// The broadcast times out on the stalled client and drops it; the healthy
	// client still gets the frame.
	b.Broadcast(map[string]string{"event": "session_established"})
	assert.Equal(t, 1, b.ClientCount())
	assert.Contains(t, healthy.Body.String(), "data: ")
	select {
	case <-client.Done:
	default:
		t.Fatal("stalled client should be dropped after the write timeout")
	}

	// The blocked write now finishes with an error, after the broadcast has
	// returned. This must not panic and removal must stay idempotent.
	close(stalled.release)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, b.ClientCount())

	b.Broadcast(map[string]string{"event": "session_closed"})
	assert.Contains(t, healthy.Body.String(), `"session_closed"`)
}

func TestBroadcastSkipsFinishedClients(t *testing.T) {
	b := NewBroadcaster()
	rec := httptest.NewRecorder()
	client, err := b.AddClient(rec)
	require.NoError(t, err)
	b.RemoveClient(client)

	b.Broadcast(map[string]string{"event": "request_received"})
	assert.Empty(t, rec.Body.String())
}

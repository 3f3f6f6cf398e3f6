package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/gatebook/internal/db/memory"
)

func newTestService() *Service {
	return New("test", memory.NewStore(), nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func establishSession(t *testing.T, handler http.Handler, id string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions", map[string]string{"session_id": id})
	require.Equal(t, http.StatusCreated, rec.Code)
	var dto sessionDTO
	decode(t, rec, &dto)
	return dto.SessionID
}

func sendMessage(t *testing.T, handler http.Handler, sessionID, prompt string) clientMessageResponse {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions/"+sessionID+"/messages",
		map[string]interface{}{"prompt": prompt})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp clientMessageResponse
	decode(t, rec, &resp)
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestService().Router()
	rec := doJSON(t, handler, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestEstablishSessionEndpoint(t *testing.T) {
	handler := newTestService().Router()

	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions", map[string]string{"session_id": "sess-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var dto sessionDTO
	decode(t, rec, &dto)
	assert.Equal(t, "sess-1", dto.SessionID)
	assert.Equal(t, "active", dto.State)
	assert.Empty(t, dto.RequestIDs)
	assert.False(t, dto.EstablishedAt.IsZero())

	// Empty body generates an id.
	rec = doJSON(t, handler, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	decode(t, rec, &dto)
	assert.NotEmpty(t, dto.SessionID)
}

func TestGetSessionNotFound(t *testing.T) {
	handler := newTestService().Router()
	rec := doJSON(t, handler, http.MethodGet, "/v1/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClientMessageEndpoint(t *testing.T) {
	handler := newTestService().Router()
	sessionID := establishSession(t, handler, "sess-1")

	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions/"+sessionID+"/messages",
		map[string]interface{}{"prompt": "hello", "provider": "claude", "max_tokens": 512})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp clientMessageResponse
	decode(t, rec, &resp)
	assert.Equal(t, "pending", resp.Request.State)
	assert.Equal(t, "hello", resp.Request.Prompt)
	assert.Equal(t, "claude", resp.Request.ProviderHint)
	assert.Equal(t, 512, resp.Request.MaxTokens)
	assert.Equal(t, []string{resp.Request.RequestID}, resp.Session.RequestIDs)
}

func TestClientMessageValidation(t *testing.T) {
	handler := newTestService().Router()
	sessionID := establishSession(t, handler, "sess-1")

	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions/"+sessionID+"/messages",
		map[string]interface{}{"prompt": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/v1/sessions/"+sessionID+"/messages",
		map[string]interface{}{"prompt": "hi", "provider": "cohere"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/v1/sessions/"+sessionID+"/messages",
		map[string]interface{}{"prompt": "hi", "max_tokens": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClientMessageWithSecretStillAccepted(t *testing.T) {
	handler := newTestService().Router()
	sessionID := establishSession(t, handler, "sess-1")

	// Credential-shaped material is warned about but never rejected, and the
	// stored prompt is kept verbatim.
	prompt := "my key is sk-abcdefghij0123456789, is that safe?"
	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions/"+sessionID+"/messages",
		map[string]interface{}{"prompt": prompt})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp clientMessageResponse
	decode(t, rec, &resp)
	assert.Equal(t, prompt, resp.Request.Prompt)
}

func TestClientMessageClosedSessionConflicts(t *testing.T) {
	handler := newTestService().Router()
	sessionID := establishSession(t, handler, "sess-1")

	rec := doJSON(t, handler, http.MethodPost, "/v1/sessions/"+sessionID+"/close", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/v1/sessions/"+sessionID+"/messages",
		map[string]interface{}{"prompt": "hello"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStreamingLifecycleEndpoints(t *testing.T) {
	handler := newTestService().Router()
	sessionID := establishSession(t, handler, "sess-1")
	created := sendMessage(t, handler, sessionID, "tell me about channels")
	requestID := created.Request.RequestID

	for _, content := range []string{"Channels", " synchronize goroutines"} {
		rec := doJSON(t, handler, http.MethodPost, "/v1/requests/"+requestID+"/chunks",
			map[string]interface{}{"kind": "delta", "content": content})
		require.Equal(t, http.StatusOK, rec.Code)
		var dto requestDTO
		decode(t, rec, &dto)
		assert.Equal(t, "streaming", dto.State)
	}

	rec := doJSON(t, handler, http.MethodPost, "/v1/requests/"+requestID+"/complete",
		map[string]interface{}{"total_tokens": 21, "stop_reason": "end_turn"})
	require.Equal(t, http.StatusOK, rec.Code)
	var dto requestDTO
	decode(t, rec, &dto)
	assert.Equal(t, "completed", dto.State)
	assert.Equal(t, "Channels synchronize goroutines", dto.FullResponse)
	assert.Equal(t, 21, dto.TotalTokens)
	assert.Equal(t, "end_turn", dto.StopReason)

	// Terminal request rejects further chunks.
	rec = doJSON(t, handler, http.MethodPost, "/v1/requests/"+requestID+"/chunks",
		map[string]interface{}{"kind": "delta", "content": "more"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCompletePendingRequestConflicts(t *testing.T) {
	handler := newTestService().Router()
	sessionID := establishSession(t, handler, "sess-1")
	created := sendMessage(t, handler, sessionID, "hi")

	rec := doJSON(t, handler, http.MethodPost, "/v1/requests/"+created.Request.RequestID+"/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFailRequestEndpoint(t *testing.T) {
	handler := newTestService().Router()
	sessionID := establishSession(t, handler, "sess-1")
	created := sendMessage(t, handler, sessionID, "hi")

	rec := doJSON(t, handler, http.MethodPost, "/v1/requests/"+created.Request.RequestID+"/fail",
		map[string]interface{}{"reason": "provider unreachable"})
	require.Equal(t, http.StatusOK, rec.Code)
	var dto requestDTO
	decode(t, rec, &dto)
	assert.Equal(t, "failed", dto.State)
	assert.Equal(t, "provider unreachable", dto.FailureReason)
}

func TestChunkValidation(t *testing.T) {
	handler := newTestService().Router()
	sessionID := establishSession(t, handler, "sess-1")
	created := sendMessage(t, handler, sessionID, "hi")

	rec := doJSON(t, handler, http.MethodPost, "/v1/requests/"+created.Request.RequestID+"/chunks",
		map[string]interface{}{"kind": "delta", "content": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/v1/requests/"+created.Request.RequestID+"/chunks",
		map[string]interface{}{"kind": "noise", "content": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRequestsEndpoint(t *testing.T) {
	handler := newTestService().Router()
	sessionID := establishSession(t, handler, "sess-1")
	first := sendMessage(t, handler, sessionID, "first")
	second := sendMessage(t, handler, sessionID, "second")

	rec := doJSON(t, handler, http.MethodGet, "/v1/sessions/"+sessionID+"/requests", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Requests []requestDTO `json:"requests"`
		Total    int64        `json:"total"`
	}
	decode(t, rec, &body)
	assert.Equal(t, int64(2), body.Total)
	require.Len(t, body.Requests, 2)
	assert.Equal(t, first.Request.RequestID, body.Requests[0].RequestID)
	assert.Equal(t, second.Request.RequestID, body.Requests[1].RequestID)
}

func TestCloseAndPurgeSessionEndpoints(t *testing.T) {
	handler := newTestService().Router()
	sessionID := establishSession(t, handler, "sess-1")
	sendMessage(t, handler, sessionID, "hi")

	// Active sessions cannot be purged.
	rec := doJSON(t, handler, http.MethodDelete, "/v1/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/v1/sessions/"+sessionID+"/close",
		map[string]string{"reason": "done"})
	require.Equal(t, http.StatusOK, rec.Code)
	var dto sessionDTO
	decode(t, rec, &dto)
	assert.Equal(t, "closed", dto.State)
	assert.Equal(t, "done", dto.CloseReason)
	assert.NotNil(t, dto.ClosedAt)

	// Closing again conflicts.
	rec = doJSON(t, handler, http.MethodPost, "/v1/sessions/"+sessionID+"/close", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/v1/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var purge map[string]interface{}
	decode(t, rec, &purge)
	assert.Equal(t, float64(1), purge["requests_deleted"])

	rec = doJSON(t, handler, http.MethodGet, "/v1/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMalformedBodyRejected(t *testing.T) {
	handler := newTestService().Router()
	sessionID := establishSession(t, handler, "sess-1")

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sessionID+"/messages",
		bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/gatebook/internal/app"
	"github.com/thebtf/gatebook/internal/domain"
	"github.com/thebtf/gatebook/internal/redact"
)

type sessionDTO struct {
	SessionID     string     `json:"session_id"`
	State         string     `json:"state"`
	RequestIDs    []string   `json:"request_ids"`
	RequestCount  int        `json:"request_count"`
	EstablishedAt time.Time  `json:"established_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	CloseReason   string     `json:"close_reason,omitempty"`
	DurationMs    int64      `json:"duration_ms,omitempty"`
}

type requestDTO struct {
	RequestID     string     `json:"request_id"`
	SessionID     string     `json:"session_id"`
	Prompt        string     `json:"prompt"`
	ProviderHint  string     `json:"provider_hint,omitempty"`
	MaxTokens     int        `json:"max_tokens,omitempty"`
	State         string     `json:"state"`
	ChunkCount    int        `json:"chunk_count"`
	FullResponse  string     `json:"full_response,omitempty"`
	ReceivedAt    time.Time  `json:"received_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	TotalTokens   int        `json:"total_tokens,omitempty"`
	StopReason    string     `json:"stop_reason,omitempty"`
}

func sessionToDTO(session domain.Session) sessionDTO {
	ids := session.RequestIDs()
	rawIDs := make([]string, len(ids))
	for i, id := range ids {
		rawIDs[i] = id.String()
	}
	dto := sessionDTO{
		SessionID:     session.ID().String(),
		State:         string(session.State()),
		RequestIDs:    rawIDs,
		RequestCount:  session.RequestCount(),
		EstablishedAt: session.EstablishedAt(),
		CloseReason:   session.CloseReason(),
	}
	if closedAt, ok := session.ClosedAt(); ok {
		dto.ClosedAt = &closedAt
	}
	if duration, ok := session.Duration(); ok {
		dto.DurationMs = duration.Milliseconds()
	}
	return dto
}

func requestToDTO(request domain.Request) requestDTO {
	message := request.Message()
	provider, _ := message.ProviderHint()
	maxTokens, _ := message.MaxTokens()
	meta := request.CompletionMeta()

	dto := requestDTO{
		RequestID:     request.ID().String(),
		SessionID:     request.SessionID().String(),
		Prompt:        message.Prompt(),
		ProviderHint:  string(provider),
		MaxTokens:     maxTokens,
		State:         string(request.State()),
		ChunkCount:    len(request.Chunks()),
		FullResponse:  request.FullResponse(),
		ReceivedAt:    request.ReceivedAt(),
		FailureReason: request.FailureReason(),
		TotalTokens:   meta.TotalTokens,
		StopReason:    meta.StopReason,
	}
	if completedAt, ok := request.CompletedAt(); ok {
		dto.CompletedAt = &completedAt
	}
	return dto
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

// writeError maps the stable error vocabulary to HTTP statuses: not-found
// conditions to 404, state conflicts to 409, validation to 400, and
// everything else (ExecutionError included) to 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrSessionNotFound), errors.Is(err, app.ErrRequestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrSessionNotActive),
		errors.Is(err, domain.ErrInvalidSessionState),
		errors.Is(err, domain.ErrInvalidRequestState):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrEmptyID),
		errors.Is(err, domain.ErrEmptyPrompt),
		errors.Is(err, domain.ErrInvalidMaxTokens),
		errors.Is(err, domain.ErrInvalidTokenCount),
		errors.Is(err, domain.ErrUnknownProvider),
		errors.Is(err, domain.ErrEmptyChunkContent),
		errors.Is(err, domain.ErrEmptyErrorMessage),
		errors.Is(err, domain.ErrUnknownChunkKind):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request handling failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startTime).String(),
	})
}

type establishSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

func (s *Service) handleEstablishSession(w http.ResponseWriter, r *http.Request) {
	var body establishSessionRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
	}

	in := app.EstablishSessionInput{}
	if body.SessionID != "" {
		id, err := domain.ParseSessionID(body.SessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		in.SessionID = id
	}

	result, err := s.establish.Execute(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publishEvents(result.Events)
	writeJSON(w, http.StatusCreated, sessionToDTO(result.Session))
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	session, err := s.queries.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToDTO(session))
}

type closeSessionRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (s *Service) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var body closeSessionRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
	}

	result, err := s.closeSession.Execute(r.Context(), app.CloseSessionInput{SessionID: id, Reason: body.Reason})
	if err != nil {
		writeError(w, err)
		return
	}
	s.publishEvents(result.Events)
	writeJSON(w, http.StatusOK, sessionToDTO(result.Session))
}

func (s *Service) handlePurgeSession(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.purgeSession.Execute(r.Context(), app.PurgeSessionInput{SessionID: id})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":       result.SessionID.String(),
		"requests_deleted": result.RequestsDeleted,
	})
}

type clientMessageRequest struct {
	Prompt    string `json:"prompt"`
	Provider  string `json:"provider,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type clientMessageResponse struct {
	Session              sessionDTO `json:"session"`
	Request              requestDTO `json:"request"`
	PromptTokensEstimate int        `json:"prompt_tokens_estimate,omitempty"`
}

func (s *Service) handleClientMessage(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var body clientMessageRequest
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	message, err := domain.NewClientMessage(body.Prompt)
	if err != nil {
		writeError(w, err)
		return
	}
	if redact.ContainsSecret(message.Prompt()) {
		log.Warn().Str("sessionId", id.String()).Msg("prompt carries credential-shaped material")
	}
	if body.Provider != "" {
		if message, err = message.WithProviderHint(domain.Provider(body.Provider)); err != nil {
			writeError(w, err)
			return
		}
	}
	if body.MaxTokens != 0 {
		if message, err = message.WithMaxTokens(body.MaxTokens); err != nil {
			writeError(w, err)
			return
		}
	}

	result, err := s.handleMessage.Execute(r.Context(), app.HandleClientMessageInput{SessionID: id, Message: message})
	if err != nil {
		writeError(w, err)
		return
	}
	s.publishEvents(result.Events)

	resp := clientMessageResponse{
		Session: sessionToDTO(result.Session),
		Request: requestToDTO(result.Request),
	}
	if s.estimator != nil {
		if estimate, err := s.estimator.Estimate(message.Prompt()); err == nil {
			resp.PromptTokensEstimate = estimate
		} else {
			log.Debug().Err(err).Msg("token estimate failed")
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Service) handleListRequests(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.queries.ListSessionRequests(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]requestDTO, len(result.Requests))
	for i, request := range result.Requests {
		dtos[i] = requestToDTO(request)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requests": dtos,
		"total":    result.Total,
	})
}

func (s *Service) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, err)
		return
	}
	request, err := s.queries.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requestToDTO(request))
}

type streamChunkRequest struct {
	Kind        string `json:"kind"`
	Content     string `json:"content,omitempty"`
	TotalTokens int    `json:"total_tokens,omitempty"`
	Message     string `json:"message,omitempty"`
}

func (s *Service) handleStreamChunk(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var body streamChunkRequest
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	chunk, err := domain.RehydrateChunk(domain.ChunkKind(body.Kind), body.Content, body.TotalTokens, body.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.handleChunk.Execute(r.Context(), app.HandleStreamChunkInput{RequestID: id, Chunk: chunk})
	if err != nil {
		writeError(w, err)
		return
	}
	s.publishEvents(result.Events)
	writeJSON(w, http.StatusOK, requestToDTO(result.Request))
}

type completeRequestRequest struct {
	TotalTokens int    `json:"total_tokens,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

func (s *Service) handleCompleteRequest(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var body completeRequestRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
	}

	result, err := s.completeRequest.Execute(r.Context(), app.CompleteRequestInput{
		RequestID: id,
		Meta:      domain.CompletionMeta{TotalTokens: body.TotalTokens, StopReason: body.StopReason},
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.publishEvents(result.Events)
	writeJSON(w, http.StatusOK, requestToDTO(result.Request))
}

type failRequestRequest struct {
	Reason string `json:"reason"`
}

func (s *Service) handleFailRequest(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var body failRequestRequest
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	result, err := s.failRequest.Execute(r.Context(), app.FailRequestInput{RequestID: id, Reason: body.Reason})
	if err != nil {
		writeError(w, err)
		return
	}
	s.publishEvents(result.Events)
	writeJSON(w, http.StatusOK, requestToDTO(result.Request))
}

// handleEvents streams the bookkeeping event feed as Server-Sent Events until
// the client disconnects.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, err := s.broadcaster.AddClient(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer s.broadcaster.RemoveClient(client)

	client.Flusher.Flush()
	select {
	case <-r.Context().Done():
	case <-client.Done:
	}
}

// Package server exposes the bookkeeping use cases over HTTP: session and
// request lifecycle endpoints plus an SSE feed of domain events.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thebtf/gatebook/internal/app"
	"github.com/thebtf/gatebook/internal/server/sse"
	"github.com/thebtf/gatebook/internal/tokens"
)

// Service wires the use cases to the router.
type Service struct {
	version         string
	router          chi.Router
	establish       *app.EstablishSession
	handleMessage   *app.HandleClientMessage
	handleChunk     *app.HandleStreamChunk
	completeRequest *app.CompleteRequest
	failRequest     *app.FailRequest
	closeSession    *app.CloseSession
	purgeSession    *app.PurgeSession
	queries         *app.Queries
	broadcaster     *sse.Broadcaster
	estimator       *tokens.Estimator
	startTime       time.Time
}

// New creates the service over the given unit-of-work provider. The estimator
// is optional: when nil, message responses omit the token estimate.
func New(version string, provider app.UnitOfWorkProvider, estimator *tokens.Estimator) *Service {
	s := &Service{
		version:         version,
		router:          chi.NewRouter(),
		establish:       app.NewEstablishSession(provider),
		handleMessage:   app.NewHandleClientMessage(provider),
		handleChunk:     app.NewHandleStreamChunk(provider),
		completeRequest: app.NewCompleteRequest(provider),
		failRequest:     app.NewFailRequest(provider),
		closeSession:    app.NewCloseSession(provider),
		purgeSession:    app.NewPurgeSession(provider),
		queries:         app.NewQueries(provider),
		broadcaster:     sse.NewBroadcaster(),
		estimator:       estimator,
		startTime:       time.Now(),
	}
	s.routes()
	return s
}

func (s *Service) routes() {
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/v1/events", s.handleEvents)

	s.router.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleEstablishSession)
		r.Get("/{sessionID}", s.handleGetSession)
		r.Post("/{sessionID}/close", s.handleCloseSession)
		r.Delete("/{sessionID}", s.handlePurgeSession)
		r.Post("/{sessionID}/messages", s.handleClientMessage)
		r.Get("/{sessionID}/requests", s.handleListRequests)
	})

	s.router.Route("/v1/requests", func(r chi.Router) {
		r.Get("/{requestID}", s.handleGetRequest)
		r.Post("/{requestID}/chunks", s.handleStreamChunk)
		r.Post("/{requestID}/complete", s.handleCompleteRequest)
		r.Post("/{requestID}/fail", s.handleFailRequest)
	})
}

// Router returns the HTTP handler.
func (s *Service) Router() http.Handler {
	return s.router
}

package server

import (
	"time"

	"github.com/thebtf/gatebook/internal/domain"
	"github.com/thebtf/gatebook/internal/redact"
)

// chunkPreviewLimit caps chunk content on the feed. The feed is bookkeeping
// observation, not response streaming; callers wanting the full text load the
// request.
const chunkPreviewLimit = 256

// eventEnvelope is the wire form of a domain event on the SSE feed.
type eventEnvelope struct {
	Event       string         `json:"event"`
	At          time.Time      `json:"at"`
	SessionID   string         `json:"session_id,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Chunk       *chunkEnvelope `json:"chunk,omitempty"`
	TotalTokens int            `json:"total_tokens,omitempty"`
	StopReason  string         `json:"stop_reason,omitempty"`
}

type chunkEnvelope struct {
	Kind        string `json:"kind"`
	Content     string `json:"content,omitempty"`
	TotalTokens int    `json:"total_tokens,omitempty"`
	Message     string `json:"message,omitempty"`
}

func envelopeFrom(event domain.Event) eventEnvelope {
	env := eventEnvelope{Event: event.EventName(), At: event.OccurredAt()}
	switch e := event.(type) {
	case domain.SessionEstablished:
		env.SessionID = e.SessionID.String()
	case domain.SessionClosed:
		env.SessionID = e.SessionID.String()
		env.Reason = redact.Scrub(e.Reason)
	case domain.RequestReceived:
		env.SessionID = e.SessionID.String()
		env.RequestID = e.RequestID.String()
	case domain.ResponseChunkReceived:
		env.RequestID = e.RequestID.String()
		tokens, _ := e.Chunk.TotalTokens()
		// The feed is observable by any connected client; scrub
		// credential-shaped material before it leaves the process.
		env.Chunk = &chunkEnvelope{
			Kind:        string(e.Chunk.Kind()),
			Content:     redact.Preview(e.Chunk.Content(), chunkPreviewLimit),
			TotalTokens: tokens,
			Message:     redact.Scrub(e.Chunk.ErrorMessage()),
		}
	case domain.RequestCompleted:
		env.RequestID = e.RequestID.String()
		env.TotalTokens = e.TotalTokens
		env.StopReason = e.StopReason
	case domain.RequestFailed:
		env.RequestID = e.RequestID.String()
		env.Reason = redact.Scrub(e.Reason)
	}
	return env
}

// publishEvents pushes each event onto the SSE feed.
func (s *Service) publishEvents(events []domain.Event) {
	for _, event := range events {
		s.broadcaster.Broadcast(envelopeFrom(event))
	}
}

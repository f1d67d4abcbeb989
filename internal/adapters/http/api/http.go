// Package api declares the gateway's HTTP contracts and routes.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	service "github.com/okian/sentinel/internal/app"
	"github.com/okian/sentinel/internal/domain/model"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	EventDependencies
	FingerprintDependencies
	WebhookDependencies
	StatsProvider
}

// EventDependencies is what the event endpoints use.
type EventDependencies interface {
	Ingest(ctx context.Context, ev model.RawEvent) (*model.ScoredEvent, error)
	Recent(ctx context.Context, limit int) ([]model.ScoredEvent, model.VerdictSummary, error)
}

// FingerprintDependencies is what the fingerprint endpoint uses.
type FingerprintDependencies interface {
	FingerprintCount(ctx context.Context, fp string) (int64, error)
}

// WebhookDependencies is what the webhook admin endpoints use.
type WebhookDependencies interface {
	WebhookStatus() (bool, *string)
	TestWebhook(ctx context.Context) error
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) service.Stats
}

// Server wires HTTP routes for the gateway.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	fingerprintHandler *FingerprintHandler
	webhookHandler     *WebhookHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		eventsHandler:      NewEventsHandler(deps),
		fingerprintHandler: NewFingerprintHandler(deps),
		webhookHandler:     NewWebhookHandler(deps),
	}
}

// Register attaches all routes to r. RealIP must run before the events
// handler so the source address reflects proxy headers.
func (s *Server) Register(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)
	r.Post("/events", s.eventsHandler.HandlePostEvent)
	r.Get("/events/recent", s.eventsHandler.HandleRecent)
	r.Get("/fingerprint/count/{fp}", s.fingerprintHandler.HandleCount)
	r.Get("/webhook/status", s.webhookHandler.HandleStatus)
	r.Post("/webhook/test", s.webhookHandler.HandleTest)
}

// Router returns a chi router with every route registered.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorResponse{Code: code, Message: publicMessage(err)})
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"

	service "github.com/okian/sentinel/internal/app"
	"github.com/okian/sentinel/internal/domain/model"
	"github.com/okian/sentinel/pkg/logger"
)

const maxEventBody = 64 << 10

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	Wallet      string         `json:"wallet"`
	Action      string         `json:"action"`
	Amount      *float64       `json:"amount"`
	Currency    string         `json:"currency"`
	Fingerprint string         `json:"fingerprint"`
	Metadata    map[string]any `json:"metadata"`
}

type eventResponse struct {
	Status  string                  `json:"status"`
	ID      string                  `json:"id"`
	Verdict model.Verdict           `json:"verdict"`
	Score   int                     `json:"score"`
	Reasons []string                `json:"reasons"`
	IPRisk  model.ReputationProfile `json:"ipRisk"`
}

type recentResponse struct {
	Data    []model.ScoredEvent  `json:"data"`
	Summary model.VerdictSummary `json:"summary"`
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /events.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"

	dec := json.NewDecoder(io.LimitReader(r.Body, maxEventBody))
	dec.UseNumber()
	var req eventRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid JSON body")))
		return
	}

	ev := model.RawEvent{
		Wallet:      req.Wallet,
		Action:      model.Action(req.Action),
		Amount:      req.Amount,
		Currency:    req.Currency,
		Fingerprint: req.Fingerprint,
		Metadata:    req.Metadata,
		IP:          sourceIP(r),
	}

	scored, err := h.deps.Ingest(r.Context(), ev)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		logger.Get().Error(r.Context(), "event ingestion failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_server_error", WrapKind(op, ErrInternal, err))
		return
	}

	writeJSON(w, http.StatusOK, eventResponse{
		Status:  "ok",
		ID:      scored.ID,
		Verdict: scored.Verdict,
		Score:   scored.Score,
		Reasons: scored.Reasons,
		IPRisk:  scored.Reputation,
	})
}

// HandleRecent handles GET /events/recent?limit=N.
func (h *EventsHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.recent_events"

	limit := service.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	events, summary, err := h.deps.Recent(r.Context(), limit)
	if err != nil {
		logger.Get().Error(r.Context(), "listing recent events failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_server_error", WrapKind(op, ErrInternal, err))
		return
	}
	if events == nil {
		events = []model.ScoredEvent{}
	}
	writeJSON(w, http.StatusOK, recentResponse{Data: events, Summary: summary})
}

// sourceIP returns the client address. RealIP has already replaced
// RemoteAddr with proxy-supplied values when present.
func sourceIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

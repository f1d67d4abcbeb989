package api

import (
	"errors"
	"net/http"

	"github.com/okian/sentinel/internal/adapters/webhook"
	"github.com/okian/sentinel/pkg/logger"
)

type webhookStatusResponse struct {
	Enabled bool    `json:"enabled"`
	Webhook *string `json:"webhook"`
}

type webhookTestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// WebhookHandler serves the operator webhook admin endpoints.
type WebhookHandler struct {
	deps WebhookDependencies
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(deps WebhookDependencies) *WebhookHandler {
	return &WebhookHandler{deps: deps}
}

// HandleStatus handles GET /webhook/status.
func (h *WebhookHandler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	enabled, masked := h.deps.WebhookStatus()
	writeJSON(w, http.StatusOK, webhookStatusResponse{Enabled: enabled, Webhook: masked})
}

// HandleTest handles POST /webhook/test. Upstream error statuses are
// mirrored; network failures answer 502.
func (h *WebhookHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	const op = "api.webhook_test"

	err := h.deps.TestWebhook(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, webhookTestResponse{Success: true})
		return
	}

	var se *webhook.StatusError
	switch {
	case errors.Is(err, webhook.ErrNotConfigured):
		writeJSON(w, http.StatusBadRequest, webhookTestResponse{Message: "Webhook URL not configured"})
	case errors.As(err, &se):
		writeJSON(w, se.Code, webhookTestResponse{Message: "Webhook responded with an error", Status: se.Code})
	default:
		logger.Get().Warn(r.Context(), "webhook test failed", logger.Error(WrapKind(op, ErrUpstream, err)))
		writeJSON(w, http.StatusBadGateway, webhookTestResponse{Message: "webhook request failed"})
	}
}

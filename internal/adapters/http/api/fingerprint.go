package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/sentinel/pkg/logger"
)

type fingerprintResponse struct {
	Fingerprint       string `json:"fingerprint"`
	AssociatedWallets int64  `json:"associatedWallets"`
}

// FingerprintHandler answers fingerprint reuse lookups.
type FingerprintHandler struct {
	deps FingerprintDependencies
}

// NewFingerprintHandler creates a new fingerprint handler.
func NewFingerprintHandler(deps FingerprintDependencies) *FingerprintHandler {
	return &FingerprintHandler{deps: deps}
}

// HandleCount handles GET /fingerprint/count/{fp}.
func (h *FingerprintHandler) HandleCount(w http.ResponseWriter, r *http.Request) {
	const op = "api.fingerprint_count"

	fp := strings.TrimSpace(chi.URLParam(r, "fp"))
	if fp == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing fingerprint")))
		return
	}

	n, err := h.deps.FingerprintCount(r.Context(), fp)
	if err != nil {
		logger.Get().Error(r.Context(), "fingerprint count failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_server_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, fingerprintResponse{Fingerprint: fp, AssociatedWallets: n})
}

package handlers

import (
	"net/http"

	"github.com/openclaim/claimdex/api/types"
)

// StatusHandler handles health and stats requests.
type StatusHandler struct {
	service types.StatusService
}

func NewStatusHandler(service types.StatusService) *StatusHandler {
	return &StatusHandler{service: service}
}

// HandleHealth handles GET /health. Reports 503 when the store is down.
func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := h.service.Health(r.Context())
	status := http.StatusOK
	if resp.Database != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// HandleStats handles GET /stats.
func (h *StatusHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Stats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

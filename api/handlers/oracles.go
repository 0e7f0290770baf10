package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openclaim/claimdex/api/types"
)

// IPHasher abstracts the HMAC applied to client IPs for the vote rate limit.
type IPHasher interface {
	HashRequest(r *http.Request) string
}

// OracleHandler handles verdict report requests.
type OracleHandler struct {
	service types.OracleService
	hasher  IPHasher
}

func NewOracleHandler(service types.OracleService, hasher IPHasher) *OracleHandler {
	return &OracleHandler{service: service, hasher: hasher}
}

// HandleSubmitReport handles POST /oracles/report.
func (h *OracleHandler) HandleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var req types.ReportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.service.SubmitReport(r.Context(), &req, h.hasher.HashRequest(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleReportsByMarket handles GET /oracles/reports/{market_id}.
func (h *OracleHandler) HandleReportsByMarket(w http.ResponseWriter, r *http.Request) {
	marketID := mux.Vars(r)["market_id"]

	reports, err := h.service.ReportsByMarket(r.Context(), marketID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

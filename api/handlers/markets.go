package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/openclaim/claimdex/api/types"
)

// MarketHandler handles market lifecycle and betting requests.
type MarketHandler struct {
	service types.MarketService
}

func NewMarketHandler(service types.MarketService) *MarketHandler {
	return &MarketHandler{service: service}
}

// HandleList handles GET /markets.
func (h *MarketHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 20
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "invalid_input", "limit must be an integer in [1,100]")
			return
		}
		limit = n
	}
	offset := 0
	if o := q.Get("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_input", "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	markets, err := h.service.ListMarkets(r.Context(), q.Get("status"), q.Get("category"), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"markets": markets})
}

// HandleGet handles GET /markets/{id}.
func (h *MarketHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	market, err := h.service.GetMarket(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"market": market})
}

// HandleSubmit handles POST /markets/submit.
func (h *MarketHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req types.SubmitMarketRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.service.SubmitMarket(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleBet handles POST /markets/{id}/bet.
func (h *MarketHandler) HandleBet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req types.BetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.service.PlaceBet(r.Context(), id, &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /markets/{id}.
func (h *MarketHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req types.DeleteMarketRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.service.DeleteMarket(r.Context(), id, &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

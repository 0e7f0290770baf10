// Package handlers contains the HTTP handlers. Each resource gets a handler
// struct over its service interface; domain errors map onto status codes
// here and nowhere else.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/openclaim/claimdex/store"
	ledgertypes "github.com/openclaim/claimdex/x/ledger/types"
	markettypes "github.com/openclaim/claimdex/x/market/types"
	oracletypes "github.com/openclaim/claimdex/x/oracle/types"
	settlementtypes "github.com/openclaim/claimdex/x/settlement/types"
	tradetypes "github.com/openclaim/claimdex/x/trade/types"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return false
	}
	return true
}

// writeDomainError maps a registered domain error onto an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case ledgertypes.ErrUserNotFound.Is(err),
		markettypes.ErrMarketNotFound.Is(err),
		oracletypes.ErrOracleNotFound.Is(err),
		tradetypes.ErrPositionNotFound.Is(err),
		store.ErrNotFound.Is(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case markettypes.ErrNotSubmitter.Is(err):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())

	case oracletypes.ErrDuplicateVote.Is(err):
		writeError(w, http.StatusBadRequest, "duplicate_vote", err.Error())

	case oracletypes.ErrRateLimited.Is(err):
		writeError(w, http.StatusBadRequest, "rate_limited", err.Error())

	case ledgertypes.ErrInsufficientFunds.Is(err),
		ledgertypes.ErrInsufficientLocked.Is(err):
		writeError(w, http.StatusBadRequest, "insufficient_funds", err.Error())

	case markettypes.ErrMarketNotActive.Is(err),
		settlementtypes.ErrAlreadySettled.Is(err):
		writeError(w, http.StatusBadRequest, "invalid_state", err.Error())

	case ledgertypes.ErrInvalidAmount.Is(err),
		ledgertypes.ErrInvalidPseudonym.Is(err),
		ledgertypes.ErrPseudonymTaken.Is(err),
		markettypes.ErrInvalidInput.Is(err),
		markettypes.ErrEmptyText.Is(err),
		markettypes.ErrStakeTooLow.Is(err),
		markettypes.ErrInvalidSide.Is(err),
		tradetypes.ErrInvalidAmount.Is(err),
		tradetypes.ErrInvalidDirection.Is(err),
		oracletypes.ErrInvalidVerdict.Is(err),
		oracletypes.ErrStakeTooLow.Is(err),
		settlementtypes.ErrInvalidOutcome.Is(err):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())

	default:
		// Conflicts that exhausted retries and store failures.
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

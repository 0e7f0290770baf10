package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openclaim/claimdex/api/types"
)

// AuthHandler handles user identity and leaderboard requests.
type AuthHandler struct {
	service types.AuthService
}

func NewAuthHandler(service types.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// HandleInitialize handles POST /auth/initialize. Returns 201 when the
// pseudonym was newly registered, 200 when it already existed.
func (h *AuthHandler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	var req types.InitializeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.service.Initialize(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// HandleGetUser handles GET /auth/user/{id}.
func (h *AuthHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// HandleLeaderboard handles GET /auth/users.
func (h *AuthHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Leaderboard(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": entries})
}

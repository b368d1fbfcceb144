package handler

import (
	"encoding/json"
	"net/http"

	"shopping-portal/internal/state"
)

// AuthHandler handles the login form and logout
type AuthHandler struct {
	ctrl      *state.Controller
	refresher Refresher
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(ctrl *state.Controller, refresher Refresher) *AuthHandler {
	return &AuthHandler{
		ctrl:      ctrl,
		refresher: refresher,
	}
}

// LoginRequest represents login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login submits the login form. The outcome reaches the page as a notice
// followed by a refresh.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := detach(r)
	h.ctrl.SetCredentials(req.Username, req.Password)
	err := h.ctrl.Login(ctx)
	h.refresher.Refresh(ctx)

	if err != nil {
		writeError(w, http.StatusUnauthorized, h.ctrl.Snapshot().LoginError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Logout drops the session. It always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := detach(r)
	err := h.ctrl.Logout(ctx)
	h.refresher.Refresh(ctx)

	if err != nil {
		// the session is gone from memory; only the token file survived
		writeError(w, http.StatusInternalServerError, "Failed to clear stored session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

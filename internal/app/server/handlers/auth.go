package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Mathieux83/Liste-Courses-sub000/internal/core/services"
	"github.com/Mathieux83/Liste-Courses-sub000/internal/platform/logger"
)

type AuthHandler struct {
	tokenSvc *services.TokenService
}

func NewAuthHandler(t *services.TokenService) *AuthHandler {
	return &AuthHandler{tokenSvc: t}
}

// IssueToken exchanges a user id for a signed bearer token. Account
// registration lives in a separate service; this endpoint only exists so
// clients can open an authenticated sync session.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		log.ErrorContext(r.Context(), "auth handler - bad request")
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	token, err := h.tokenSvc.GenerateToken(req.UserID)
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - token generation failed", "user_id", req.UserID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
	log.InfoContext(r.Context(), "auth handler - token issued", "user_id", req.UserID)
}

package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/infra/auth"
)

// AuthHandler — demo-вход без пароля: username превращается в стабильный
// user id, сессия живет в подписанной куке.
type AuthHandler struct {
	sessions *auth.SessionManager
	logger   *zap.Logger
}

func NewAuthHandler(sessions *auth.SessionManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, logger: logger.Named("auth-handler")}
}

type loginRequest struct {
	Username string `json:"username"`
}

// Login выдает сессионную куку.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return
	}

	userID := "user_" + strings.ReplaceAll(uuid.NewSHA1(uuid.NameSpaceOID, []byte(username)).String(), "-", "")[:12]

	if err := h.sessions.Issue(w, userID); err != nil {
		h.logger.Error("issue session failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"userId":   userID,
		"username": username,
	})
}

// Logout сбрасывает куку.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Session возвращает текущую личность (после fallback'а к demo).
// GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"userId": userID,
		"demo":   userID == auth.DefaultDemoUser,
	})
}

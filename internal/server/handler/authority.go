package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/authority"
	"github.com/LaithAlz/me-agent/internal/infra/auth"
)

type AuthorityHandler struct {
	engine   *authority.Engine
	policies *authority.PolicyCache
	logger   *zap.Logger
}

func NewAuthorityHandler(engine *authority.Engine, policies *authority.PolicyCache, logger *zap.Logger) *AuthorityHandler {
	return &AuthorityHandler{engine: engine, policies: policies, logger: logger.Named("authority-handler")}
}

// Check оценивает предлагаемое действие агента до его выполнения.
// POST /api/authority/check
func (h *AuthorityHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req authority.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		respondError(w, http.StatusBadRequest, "action is required")
		return
	}

	result, err := h.engine.Check(r.Context(), userID, req)
	if err != nil {
		h.logger.Error("authority check failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "authority check failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Status — краткое состояние authority-слоя для UI.
// GET /api/authority/status
func (h *AuthorityHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	policy, err := h.policies.GetPolicy(r.Context(), userID)
	if err != nil {
		h.logger.Error("load policy for status failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load policy")
		return
	}

	message := "Authority layer active"
	if !policy.AgentEnabled {
		message = "Agent is disabled"
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"userId":            userID,
		"agentEnabled":      policy.AgentEnabled,
		"maxSpend":          policy.MaxSpend,
		"allowedCategories": policy.AllowedCategories,
		"requireConfirm":    policy.RequireConfirm,
		"message":           message,
	})
}

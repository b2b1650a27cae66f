package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/agent"
	"github.com/LaithAlz/me-agent/internal/infra/auth"
)

type AgentHandler struct {
	orc    *agent.Orchestrator
	logger *zap.Logger
}

func NewAgentHandler(orc *agent.Orchestrator, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{orc: orc, logger: logger.Named("agent-handler")}
}

// Health — проверка живости агентского слоя.
// GET /api/agent/health
func (h *AgentHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Recommend — основной вход оркестратора.
// POST /api/agent/recommend
func (h *AgentHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req agent.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Кука — fallback, если фронтенд не передал id в теле
	if req.UserID == "" && req.UserIDLegacy == "" {
		req.UserID = auth.UserID(r.Context())
	}

	result, err := h.orc.Recommend(r.Context(), req)
	if err != nil {
		h.logger.Error("recommend failed", zap.Error(err))
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Feedback — правка рекомендованной корзины, питает Feedback Learner.
// POST /api/agent/feedback
func (h *AgentHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req agent.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" && req.UserIDLegacy == "" {
		req.UserID = auth.UserID(r.Context())
	}

	if err := h.orc.Feedback(r.Context(), req); err != nil {
		h.logger.Error("feedback failed", zap.Error(err))
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Bundle — детерминированный отбор по статической витрине.
// POST /api/agent/bundle
func (h *AgentHandler) Bundle(w http.ResponseWriter, r *http.Request) {
	var req agent.BundleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.orc.Bundle(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		h.logger.Error("bundle failed", zap.Error(err))
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Explain — объяснение готовой корзины.
// POST /api/agent/explain
func (h *AgentHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var req agent.ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text, err := h.orc.Explain(r.Context(), req)
	if err != nil {
		h.logger.Error("explain failed", zap.Error(err))
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

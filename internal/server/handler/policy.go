package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/authority"
	"github.com/LaithAlz/me-agent/internal/domain"
	"github.com/LaithAlz/me-agent/internal/infra/auth"
)

type PolicyHandler struct {
	policies *authority.PolicyCache
	logger   *zap.Logger
}

func NewPolicyHandler(policies *authority.PolicyCache, logger *zap.Logger) *PolicyHandler {
	return &PolicyHandler{policies: policies, logger: logger.Named("policy-handler")}
}

type policyResponse struct {
	UserID    string             `json:"userId"`
	Policy    domain.AgentPolicy `json:"policy"`
	UpdatedAt *time.Time         `json:"updatedAt,omitempty"`
}

// Get возвращает текущую политику пользователя (дефолтную, если своей нет).
// GET /api/policy
func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	policy, err := h.policies.GetPolicy(r.Context(), userID)
	if err != nil {
		h.logger.Error("get policy failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load policy")
		return
	}

	respondJSON(w, http.StatusOK, policyResponse{UserID: userID, Policy: policy})
}

// Update — частичное обновление: меняются только переданные поля.
// POST /api/policy
func (h *PolicyHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var update domain.PolicyUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := update.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	current, err := h.policies.GetPolicy(r.Context(), userID)
	if err != nil {
		h.logger.Error("load policy for update failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load policy")
		return
	}

	merged := update.ApplyTo(current)
	if err := h.policies.Save(r.Context(), userID, merged); err != nil {
		h.logger.Error("save policy failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to save policy")
		return
	}

	now := time.Now().UTC()
	respondJSON(w, http.StatusOK, policyResponse{UserID: userID, Policy: merged, UpdatedAt: &now})
}

// Reset сбрасывает политику к дефолтной.
// DELETE /api/policy
func (h *PolicyHandler) Reset(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	def := domain.DefaultPolicy()
	if err := h.policies.Save(r.Context(), userID, def); err != nil {
		h.logger.Error("reset policy failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to reset policy")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Policy reset to defaults",
		"policy":  def,
	})
}

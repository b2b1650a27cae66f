package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/authority"
	"github.com/LaithAlz/me-agent/internal/domain"
	"github.com/LaithAlz/me-agent/internal/infra/auth"
	"github.com/LaithAlz/me-agent/internal/store"
)

type AuditHandler struct {
	audit    store.AuditLog
	policies *authority.PolicyCache
	logger   *zap.Logger
}

func NewAuditHandler(audit store.AuditLog, policies *authority.PolicyCache, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, policies: policies, logger: logger.Named("audit-handler")}
}

type auditLogResponse struct {
	UserID string              `json:"userId"`
	Events []domain.AuditEvent `json:"events"`
	Total  int                 `json:"total"`
}

// List — журнал пользователя, most-recent-first.
// GET /api/audit?limit=50
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 200 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = v
	}

	events, err := h.audit.List(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list audit events failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load audit log")
		return
	}
	if events == nil {
		events = []domain.AuditEvent{}
	}

	respondJSON(w, http.StatusOK, auditLogResponse{UserID: userID, Events: events, Total: len(events)})
}

type auditEventCreate struct {
	Actor    string                 `json:"actor"`
	Action   string                 `json:"action"`
	Decision string                 `json:"decision"`
	Reason   string                 `json:"reason"`
	Meta     map[string]interface{} `json:"meta,omitempty"`
}

// Create — ручное событие (действия пользователя, которые стоит зафиксировать).
// Authority Engine пишет свои события сам, этот эндпоинт — дополнение.
// POST /api/audit
func (h *AuditHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req auditEventCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		respondError(w, http.StatusBadRequest, "action is required")
		return
	}
	if req.Actor == "" {
		req.Actor = domain.ActorUser
	}
	if req.Decision == "" {
		req.Decision = domain.DecisionAllow
	}

	policy, err := h.policies.GetPolicy(r.Context(), userID)
	if err != nil {
		h.logger.Error("load policy for audit event failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load policy")
		return
	}

	event := domain.AuditEvent{
		ID:             domain.NewEventID(),
		UserID:         userID,
		TS:             time.Now().UTC(),
		Actor:          req.Actor,
		Action:         req.Action,
		Decision:       req.Decision,
		Reason:         req.Reason,
		PolicySnapshot: policy,
		Meta:           req.Meta,
	}

	if err := h.audit.Append(r.Context(), event); err != nil {
		h.logger.Error("append audit event failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to append audit event")
		return
	}

	respondJSON(w, http.StatusOK, event)
}

// Summary — агрегат для дашборда по последним 100 событиям.
// GET /api/audit/summary
func (h *AuditHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	events, err := h.audit.List(r.Context(), userID, 100)
	if err != nil {
		h.logger.Error("load audit events for summary failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load audit log")
		return
	}

	respondJSON(w, http.StatusOK, domain.Summarize(userID, events))
}

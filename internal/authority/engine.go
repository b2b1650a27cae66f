// Package authority — слой контроля: проверяет предлагаемые действия агента
// против персональной политики пользователя и журналирует каждое решение.
package authority

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/domain"
	"github.com/LaithAlz/me-agent/internal/infra"
	"github.com/LaithAlz/me-agent/internal/store"
)

// ActionCheckoutStart — действие, требующее явного подтверждения пользователя.
const ActionCheckoutStart = "checkoutStart"

// CheckRequest — предлагаемое действие агента.
type CheckRequest struct {
	Action     string            `json:"action"`
	CartTotal  *float64          `json:"cartTotal,omitempty"`
	Categories []string          `json:"categories,omitempty"`
	Items      []domain.CartItem `json:"items,omitempty"`
}

// CheckResult — исход проверки. PolicySnapshot — копия по значению.
type CheckResult struct {
	Decision       string             `json:"decision"`
	Reason         string             `json:"reason"`
	PolicySnapshot domain.AgentPolicy `json:"policySnapshot"`
	BlockedItems   []domain.CartItem  `json:"blockedItems,omitempty"`
	AuditEventID   string             `json:"auditEventId"`
}

// Engine применяет правила политики в фиксированном порядке (first match wins)
// и синхронно пишет ровно одно аудит-событие на каждый вызов.
type Engine struct {
	cache   *PolicyCache
	audit   store.AuditLog
	metrics *infra.Metrics
	logger  *zap.Logger
}

func NewEngine(cache *PolicyCache, audit store.AuditLog, metrics *infra.Metrics, logger *zap.Logger) *Engine {
	return &Engine{
		cache:   cache,
		audit:   audit,
		metrics: metrics,
		logger:  logger.Named("authority"),
	}
}

// Check оценивает действие. Для валидного входа всегда возвращает
// ALLOW или BLOCK, никогда не ошибку бизнес-логики.
func (e *Engine) Check(ctx context.Context, userID string, req CheckRequest) (CheckResult, error) {
	policy, err := e.cache.GetPolicy(ctx, userID)
	if err != nil {
		return CheckResult{}, err
	}

	decision := domain.DecisionAllow
	reason := "Action permitted by policy"
	var blockedItems []domain.CartItem

	switch {
	// Правило 1: агент выключен
	case !policy.AgentEnabled:
		decision = domain.DecisionBlock
		reason = "Agent is disabled. Enable it in your policy settings to allow autonomous actions."

	// Правило 2: бюджет
	case req.CartTotal != nil && *req.CartTotal > policy.MaxSpend:
		decision = domain.DecisionBlock
		reason = fmt.Sprintf(
			"Cart total $%.2f exceeds your spending limit of $%.2f. Reduce items or increase your limit.",
			*req.CartTotal, policy.MaxSpend,
		)

	// Правило 3: категории запроса
	case len(req.Categories) > 0:
		var unauthorized []string
		for _, cat := range req.Categories {
			if !policy.AllowsCategory(cat) {
				unauthorized = append(unauthorized, cat)
			}
		}
		if len(unauthorized) > 0 {
			decision = domain.DecisionBlock
			reason = fmt.Sprintf(
				"Category '%s' is not in your allowed categories: %s. Update your policy to include it.",
				unauthorized[0], strings.Join(policy.AllowedCategories, ", "),
			)
		}

	// Правило 3b: категории отдельных позиций (только если categories не передан)
	case len(req.Items) > 0:
		for _, item := range req.Items {
			if !policy.AllowsCategory(item.Category) {
				blockedItems = append(blockedItems, item)
			}
		}
		if len(blockedItems) > 0 {
			decision = domain.DecisionBlock
			names := make([]string, 0, 3)
			for _, item := range blockedItems {
				names = append(names, item.Title)
				if len(names) == 3 {
					break
				}
			}
			reason = fmt.Sprintf(
				"Items from unauthorized categories blocked: %s. Allowed categories: %s.",
				strings.Join(names, ", "), strings.Join(policy.AllowedCategories, ", "),
			)
		}
	}

	// Правило 4: checkout требует явного подтверждения
	if decision == domain.DecisionAllow && policy.RequireConfirm && req.Action == ActionCheckoutStart {
		decision = domain.DecisionBlock
		reason = "Checkout requires your explicit confirmation. Click the checkout button to proceed."
	}

	event := domain.AuditEvent{
		ID:             domain.NewEventID(),
		UserID:         userID,
		TS:             time.Now().UTC(),
		Actor:          domain.ActorAgent,
		Action:         req.Action,
		Decision:       decision,
		Reason:         reason,
		PolicySnapshot: policy.Clone(),
		Meta: map[string]interface{}{
			"cartTotal":  req.CartTotal,
			"categories": req.Categories,
			"itemCount":  len(req.Items),
		},
	}

	// Запись синхронная: ответ не уходит, пока решение не зафиксировано в журнале
	if err := e.audit.Append(ctx, event); err != nil {
		return CheckResult{}, fmt.Errorf("authority: append audit event: %w", err)
	}

	e.metrics.DecisionTotal.WithLabelValues(req.Action, decision).Inc()
	e.logger.Info("authority decision",
		zap.String("user_id", userID),
		zap.String("action", req.Action),
		zap.String("decision", decision),
	)

	return CheckResult{
		Decision:       decision,
		Reason:         reason,
		PolicySnapshot: policy,
		BlockedItems:   blockedItems,
		AuditEventID:   event.ID,
	}, nil
}

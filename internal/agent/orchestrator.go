// Package agent — Recommendation Orchestrator: тонкая обертка над внешним
// reasoner'ом. Вся вычислимая логика (бюджет, фильтрация, пересчет весов,
// сессионные приоритеты) живет здесь; генерация контента — за границей.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/authority"
	"github.com/LaithAlz/me-agent/internal/bundle"
	"github.com/LaithAlz/me-agent/internal/catalog"
	"github.com/LaithAlz/me-agent/internal/domain"
	"github.com/LaithAlz/me-agent/internal/infra"
	"github.com/LaithAlz/me-agent/internal/learner"
	"github.com/LaithAlz/me-agent/internal/reasoner"
	"github.com/LaithAlz/me-agent/internal/sessionlog"
	"github.com/LaithAlz/me-agent/internal/store"
)

const (
	metaAssistantID = "assistant_id"
	defaultBudget   = 500.0
)

// RecommendRequest принимает и новые, и legacy-поля фронтенда.
type RecommendRequest struct {
	UserID       string `json:"userId"`
	UserIDLegacy string `json:"user_id"`

	Products []domain.InventoryItem `json:"products"`

	// legacy
	Context  string   `json:"context"`
	MaxTotal *float64 `json:"max_total"`

	ShoppingIntent    string   `json:"shoppingIntent"`
	AllowedCategories []string `json:"allowedCategories"`
	BrandPreferences  []string `json:"brandPreferences"`
	MaxSpend          *float64 `json:"maxSpend"`
	PriceSensitivity  *int     `json:"priceSensitivity"`
	AgentEnabled      *bool    `json:"agentEnabled"`
}

type RecommendResult struct {
	Cart        string `json:"cart"`
	Explanation string `json:"explanation"`
}

type FeedbackRequest struct {
	UserID       string `json:"userId"`
	UserIDLegacy string `json:"user_id"`

	RejectedItems       []string `json:"rejectedItems"`
	RejectedItemsLegacy []string `json:"rejected_items"`
	KeptItems           []string `json:"keptItems"`
	Reason              string   `json:"reason"`
}

type BundleRequest struct {
	ShoppingIntent    string   `json:"shoppingIntent"`
	MaxSpend          float64  `json:"maxSpend"`
	AllowedCategories []string `json:"allowedCategories"`
	BrandPreferences  []string `json:"brandPreferences"`
	PriceSensitivity  int      `json:"priceSensitivity"`
	AgentEnabled      *bool    `json:"agentEnabled"`
	PersonaID         string   `json:"personaId"`
}

type ExplainRequest struct {
	Intent string              `json:"intent"`
	Bundle domain.BundleResult `json:"bundle"`
}

type Orchestrator struct {
	memory   store.MemoryStore
	sessions store.SessionStore
	meta     store.MetaStore
	reasoner reasoner.Client
	recorder *sessionlog.Recorder
	catalog  *catalog.Catalog
	policies *authority.PolicyCache

	cfg     infra.EngineConfig
	metrics *infra.Metrics
	logger  *zap.Logger

	initMu sync.Mutex
}

func NewOrchestrator(
	memory store.MemoryStore,
	sessions store.SessionStore,
	meta store.MetaStore,
	rsn reasoner.Client,
	recorder *sessionlog.Recorder,
	cat *catalog.Catalog,
	policies *authority.PolicyCache,
	cfg infra.EngineConfig,
	metrics *infra.Metrics,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		memory:   memory,
		sessions: sessions,
		meta:     meta,
		reasoner: rsn,
		recorder: recorder,
		catalog:  cat,
		policies: policies,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.Named("orchestrator"),
	}
}

// EnsureAssistant лениво регистрирует ассистента при первом обращении
// и кэширует id в meta-хранилище. NotInitialized решается ровно одной
// повторной попыткой инициализации, дальше ошибка всплывает.
func (o *Orchestrator) EnsureAssistant(ctx context.Context) (string, error) {
	if id, err := o.meta.Get(ctx, metaAssistantID); err != nil {
		return "", err
	} else if id != "" {
		return id, nil
	}

	o.initMu.Lock()
	defer o.initMu.Unlock()

	// Второй читатель мог успеть инициализировать, пока мы ждали lock
	if id, err := o.meta.Get(ctx, metaAssistantID); err != nil {
		return "", err
	} else if id != "" {
		return id, nil
	}

	id, err := o.reasoner.CreateAssistant(ctx, assistantName, assistantInstructions)
	if err != nil {
		return "", err
	}
	if err := o.meta.Set(ctx, metaAssistantID, id); err != nil {
		return "", err
	}

	o.logger.Info("assistant initialized", zap.String("assistant_id", id))
	return id, nil
}

// Recommend — основной флоу рекомендации: память, фильтрация, две стадии
// внешнего reasoning'а, асинхронная запись сессии.
func (o *Orchestrator) Recommend(ctx context.Context, req RecommendRequest) (RecommendResult, error) {
	userID, err := normalizeUserID(req.UserID, req.UserIDLegacy)
	if err != nil {
		return RecommendResult{}, err
	}
	if req.PriceSensitivity != nil && (*req.PriceSensitivity < 1 || *req.PriceSensitivity > 5) {
		return RecommendResult{}, &ValidationError{Field: "priceSensitivity", Msg: "must be between 1 and 5"}
	}

	budget := resolveBudget(req)

	if _, err := o.EnsureAssistant(ctx); err != nil {
		return RecommendResult{}, err
	}

	// Память: прочитать или создать дефолтную, вмержить сессионные сигналы
	stored, err := o.memory.Get(ctx, userID)
	if err != nil {
		return RecommendResult{}, err
	}
	var mem domain.MemoryPayload
	if stored != nil {
		mem = *stored
	} else {
		mem = domain.DefaultMemory(budget)
	}
	mem = o.applySessionPreferences(mem, req, budget)

	if err := o.memory.Set(ctx, userID, mem); err != nil {
		return RecommendResult{}, err
	}

	// Агент выключен — детерминированный ответ без обращения к reasoner'у
	if req.AgentEnabled != nil && !*req.AgentEnabled {
		return RecommendResult{
			Cart:        emptyCartJSON("Agent disabled by user."),
			Explanation: "Agent is disabled. Enable it to generate recommendations.",
		}, nil
	}

	intent := firstNonEmpty(strings.TrimSpace(req.ShoppingIntent), strings.TrimSpace(req.Context), "personal use")

	allowedNorm := normalizeList(req.AllowedCategories)
	preferredNorm := normalizeList(req.BrandPreferences)

	// Сессионный приоритет: бренд, явно предпочтенный в этом запросе,
	// не попадает в avoid, даже если исторически отклонялся
	avoid := buildAvoidList(mem.RejectionPatterns, preferredNorm)

	// Пустой инвентарь — отдельный случай, не "фильтр все отсек"
	if len(req.Products) == 0 {
		result := RecommendResult{
			Cart:        emptyCartJSON("No inventory items were provided."),
			Explanation: "The request contained no products to choose from. Provide inventory items and try again.",
		}
		o.recordSession(userID, result, nil)
		return result, nil
	}

	inventory, matched := filterInventory(req.Products, allowedNorm)
	if !matched {
		// Пустой результат фильтра — явный ответ, а не тихий откат к полному списку
		result := RecommendResult{
			Cart:        emptyCartJSON("No inventory items match the allowed categories."),
			Explanation: "No items in the provided inventory match your allowed categories. Adjust the categories in your policy or provide different products.",
		}
		o.recordSession(userID, result, inventory)
		return result, nil
	}

	// Стадия 1: выбор корзины. Без retry и без fallback'а —
	// таймаут уходит наружу явной ошибкой, пустая корзина недопустима.
	decisionTask := buildDecisionPrompt(intent, budget, req.AllowedCategories, req.BrandPreferences, req.PriceSensitivity, avoid, inventory)
	decision, err := o.reasoner.Generate(ctx, reasoner.StageSelection, decisionTask)
	if err != nil {
		var tErr *reasoner.TimeoutError
		if errors.As(err, &tErr) {
			o.metrics.ReasonerErrors.WithLabelValues(reasoner.StageSelection, "timeout").Inc()
			return RecommendResult{}, ErrSelectionTimeout
		}
		o.metrics.ReasonerErrors.WithLabelValues(reasoner.StageSelection, "upstream").Inc()
		return RecommendResult{}, err
	}

	// Стадия 2: объяснение. Один повтор на таймаут, затем детерминированный fallback.
	explainTask := buildExplainPrompt(intent, budget, req.AllowedCategories, req.BrandPreferences, req.PriceSensitivity, avoid)
	explanation, err := o.explainWithFallback(ctx, explainTask, decision.Content, mem)
	if err != nil {
		return RecommendResult{}, err
	}

	result := RecommendResult{Cart: decision.Content, Explanation: explanation}
	o.recordSession(userID, result, inventory)
	return result, nil
}

// Feedback — запись правки и мерж сигналов в память через Feedback Learner.
func (o *Orchestrator) Feedback(ctx context.Context, req FeedbackRequest) error {
	userID, err := normalizeUserID(req.UserID, req.UserIDLegacy)
	if err != nil {
		return err
	}

	rejected := req.RejectedItems
	if len(rejected) == 0 {
		rejected = req.RejectedItemsLegacy
	}

	latest, err := o.sessions.LatestByUser(ctx, userID)
	if err != nil {
		return err
	}
	var (
		sessionID string
		snapshot  []domain.InventoryItem
	)
	if latest != nil {
		sessionID = latest.ID
		snapshot = latest.InventorySnapshot
	}

	if err := o.sessions.InsertCorrection(ctx, domain.Correction{
		ID:            uuid.New().String(),
		UserID:        userID,
		SessionID:     sessionID,
		KeptItems:     req.KeptItems,
		RejectedItems: rejected,
		Reason:        strings.TrimSpace(req.Reason),
		Timestamp:     time.Now().UTC(),
	}); err != nil {
		return err
	}

	stored, err := o.memory.Get(ctx, userID)
	if err != nil {
		return err
	}
	var mem domain.MemoryPayload
	if stored != nil {
		mem = *stored
	} else {
		mem = domain.DefaultMemory(defaultBudget)
	}

	updated := learner.Apply(mem, req.KeptItems, rejected, snapshot)
	return o.memory.Set(ctx, userID, updated)
}

// Bundle — детерминированный отбор по статической витрине, без reasoner'а.
// Недостающие ограничения добираются из политики пользователя.
func (o *Orchestrator) Bundle(ctx context.Context, userID string, req BundleRequest) (domain.BundleResult, error) {
	if req.MaxSpend < 0 {
		return domain.BundleResult{}, &ValidationError{Field: "maxSpend", Msg: "must be non-negative"}
	}

	policy, err := o.policies.GetPolicy(ctx, userID)
	if err != nil {
		return domain.BundleResult{}, err
	}

	maxSpend := req.MaxSpend
	if maxSpend == 0 {
		maxSpend = policy.MaxSpend
	}
	allowed := req.AllowedCategories
	if len(allowed) == 0 {
		allowed = policy.AllowedCategories
	}

	enabled := policy.AgentEnabled
	if req.AgentEnabled != nil {
		enabled = enabled && *req.AgentEnabled
	}

	return bundle.Select(bundle.Input{
		Catalog:           o.catalog.Products(),
		MaxSpend:          maxSpend,
		AllowedCategories: allowed,
		BrandPreferences:  req.BrandPreferences,
		PastPurchases:     o.catalog.History(req.PersonaID),
		CartReservations:  o.catalog.Reservations(),
		AgentEnabled:      enabled,
	}), nil
}

// Explain — объяснение готовой корзины; reasoner с fallback'ом на
// детерминированный текст.
func (o *Orchestrator) Explain(ctx context.Context, req ExplainRequest) (string, error) {
	if len(req.Bundle.Items) == 0 {
		return "The bundle is empty, so there is nothing to explain. Adjust your constraints and try again.", nil
	}

	raw, _ := json.Marshal(req.Bundle)
	task := buildExplainPrompt(req.Intent, req.Bundle.Subtotal, nil, nil, nil, nil) +
		"\nBundle: " + string(raw)

	var result reasoner.Result
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(2),
		retry.LastErrorOnly(true),
		retry.RetryIf(isReasonerTimeout),
	).Do(func() error {
		var genErr error
		result, genErr = o.reasoner.Generate(ctx, reasoner.StageExplanation, task)
		return genErr
	})
	if err != nil {
		if isReasonerTimeout(err) {
			o.metrics.ReasonerErrors.WithLabelValues(reasoner.StageExplanation, "timeout").Inc()
			return fallbackFromBundle(req.Bundle), nil
		}
		o.metrics.ReasonerErrors.WithLabelValues(reasoner.StageExplanation, "upstream").Inc()
		return "", err
	}
	return result.Content, nil
}

// ---------------------------------------------------------------------------

// explainWithFallback: один повтор только на таймаут; если оба истекли —
// детерминированный текст из содержимого решения.
func (o *Orchestrator) explainWithFallback(ctx context.Context, task, decisionContent string, mem domain.MemoryPayload) (string, error) {
	var result reasoner.Result
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(2),
		retry.LastErrorOnly(true),
		retry.RetryIf(isReasonerTimeout),
	).Do(func() error {
		var genErr error
		result, genErr = o.reasoner.Generate(ctx, reasoner.StageExplanation, task)
		return genErr
	})
	if err != nil {
		if isReasonerTimeout(err) {
			o.metrics.ReasonerErrors.WithLabelValues(reasoner.StageExplanation, "timeout").Inc()
			o.logger.Warn("explanation timed out twice, using deterministic fallback")
			return fallbackFromDecision(decisionContent, mem), nil
		}
		o.metrics.ReasonerErrors.WithLabelValues(reasoner.StageExplanation, "upstream").Inc()
		return "", err
	}
	return result.Content, nil
}

func isReasonerTimeout(err error) bool {
	var tErr *reasoner.TimeoutError
	return errors.As(err, &tErr)
}

func (o *Orchestrator) recordSession(userID string, result RecommendResult, inventory []domain.InventoryItem) {
	o.recorder.Record(domain.Session{
		ID:                uuid.New().String(),
		UserID:            userID,
		Cart:              result.Cart,
		Explanation:       result.Explanation,
		InventorySnapshot: inventory,
		Timestamp:         time.Now().UTC(),
	})
}

// applySessionPreferences вмерживает сигналы текущего запроса в память:
// бренды (sorted union), бюджет и пересчитанные веса.
func (o *Orchestrator) applySessionPreferences(mem domain.MemoryPayload, req RecommendRequest, budget float64) domain.MemoryPayload {
	mem.EnsureDefaults()

	if len(req.BrandPreferences) > 0 {
		set := make(map[string]struct{}, len(mem.PreferredBrands))
		for _, b := range mem.PreferredBrands {
			set[b] = struct{}{}
		}
		for _, b := range req.BrandPreferences {
			if t := strings.TrimSpace(b); t != "" {
				set[t] = struct{}{}
			}
		}
		merged := make([]string, 0, len(set))
		for b := range set {
			merged = append(merged, b)
		}
		sort.Strings(merged)
		mem.PreferredBrands = merged
	}

	mem.PriceSensitivity.MaxCart = budget

	if req.PriceSensitivity != nil {
		mem.Weights = rebalanceWeights(mem.Weights, *req.PriceSensitivity, o.cfg.PriceWeightDirection)
	}
	return mem
}

// rebalanceWeights пересчитывает вес цены из priceSensitivity (1..5):
// ps=1 -> 0.15, ps=5 -> 0.40 при direction=direct (у inverse шкала зеркальная),
// clamp в [0.10, 0.60]; остаток распределяется между двумя другими весами
// пропорционально их прежнему соотношению.
func rebalanceWeights(w domain.Weights, ps int, direction string) domain.Weights {
	effective := ps
	if direction == "inverse" {
		effective = 6 - ps
	}

	priceW := 0.15 + float64(effective-1)*(0.25/4)
	if priceW < 0.10 {
		priceW = 0.10
	}
	if priceW > 0.60 {
		priceW = 0.60
	}

	remaining := 1.0 - priceW
	baseOther := w.EcosystemFit + w.Design
	if baseOther == 0 {
		w.EcosystemFit = 0.4
		w.Design = 0.3
		baseOther = 0.7
	}

	return domain.Weights{
		Price:        domain.RoundTo(priceW, 3),
		EcosystemFit: domain.RoundTo(remaining*(w.EcosystemFit/baseOther), 3),
		Design:       domain.RoundTo(remaining*(w.Design/baseOther), 3),
	}
}

// filterInventory трактует allowedCategories как теги и оставляет товары
// с пересечением. Возвращает matched=false, если фильтр дал пустой результат.
func filterInventory(products []domain.InventoryItem, allowedNorm []string) ([]domain.InventoryItem, bool) {
	if len(allowedNorm) == 0 {
		return products, len(products) > 0
	}

	allowed := make(map[string]struct{}, len(allowedNorm))
	for _, c := range allowedNorm {
		allowed[c] = struct{}{}
	}

	var filtered []domain.InventoryItem
	for _, p := range products {
		for _, t := range p.Tags {
			if _, ok := allowed[strings.ToLower(strings.TrimSpace(t))]; ok {
				filtered = append(filtered, p)
				break
			}
		}
	}
	return filtered, len(filtered) > 0
}

func buildAvoidList(patterns, preferredNorm []string) []string {
	preferred := make(map[string]struct{}, len(preferredNorm))
	for _, p := range preferredNorm {
		preferred[p] = struct{}{}
	}

	out := []string{}
	for _, p := range patterns {
		np := strings.ToLower(strings.TrimSpace(p))
		if np == "" {
			continue
		}
		if _, ok := preferred[np]; ok {
			continue
		}
		out = append(out, np)
	}
	return out
}

func resolveBudget(req RecommendRequest) float64 {
	if req.MaxSpend != nil {
		return *req.MaxSpend
	}
	if req.MaxTotal != nil {
		return *req.MaxTotal
	}
	return defaultBudget
}

func normalizeUserID(ids ...string) (string, error) {
	for _, id := range ids {
		if t := strings.TrimSpace(id); t != "" {
			return t, nil
		}
	}
	return "", &ValidationError{Field: "userId", Msg: "missing user_id or userId"}
}

func normalizeList(vals []string) []string {
	out := []string{}
	for _, v := range vals {
		if nv := strings.ToLower(strings.TrimSpace(v)); nv != "" {
			out = append(out, nv)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func emptyCartJSON(notes string) string {
	raw, _ := json.Marshal(map[string]interface{}{
		"items": []interface{}{},
		"total": 0.0,
		"notes": notes,
	})
	return string(raw)
}

// decisionCart — lenient-проекция JSON-решения для fallback-текста.
type decisionCart struct {
	Items []struct {
		Name  string  `json:"name"`
		Brand string  `json:"brand"`
		Price float64 `json:"price"`
	} `json:"items"`
	Total float64 `json:"total"`
	Notes string  `json:"notes"`
}

// fallbackFromDecision синтезирует объяснение из решения: список позиций,
// итог и фиксированная фраза про предпочтения.
func fallbackFromDecision(content string, mem domain.MemoryPayload) string {
	var cart decisionCart
	cleaned := stripCodeFences(content)
	if err := json.Unmarshal([]byte(cleaned), &cart); err != nil || len(cart.Items) == 0 {
		return "The cart was selected, but a detailed explanation is temporarily unavailable. The selection follows your saved preferences and stays within your budget."
	}

	parts := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		if item.Brand != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", item.Name, item.Brand))
		} else {
			parts = append(parts, item.Name)
		}
	}

	text := fmt.Sprintf("Picked %d item(s): %s. Total: $%.2f.", len(cart.Items), strings.Join(parts, ", "), cart.Total)
	if len(mem.PreferredBrands) > 0 {
		text += fmt.Sprintf(" The selection favors your preferred brands (%s) and stays within your budget.", strings.Join(mem.PreferredBrands, ", "))
	} else {
		text += " The selection follows your saved preferences and stays within your budget."
	}
	return text
}

func fallbackFromBundle(b domain.BundleResult) string {
	parts := make([]string, 0, len(b.Items))
	for _, item := range b.Items {
		parts = append(parts, fmt.Sprintf("%s (%s)", item.Title, item.Merchant))
	}
	return fmt.Sprintf("Picked %d item(s): %s. Total: $%.2f. The selection follows your saved preferences and stays within your budget.",
		len(b.Items), strings.Join(parts, ", "), b.Subtotal)
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

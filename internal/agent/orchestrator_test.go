package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/authority"
	"github.com/LaithAlz/me-agent/internal/catalog"
	"github.com/LaithAlz/me-agent/internal/domain"
	"github.com/LaithAlz/me-agent/internal/infra"
	"github.com/LaithAlz/me-agent/internal/reasoner"
	memrepo "github.com/LaithAlz/me-agent/internal/repository/memory"
	"github.com/LaithAlz/me-agent/internal/sessionlog"
)

// fakeReasoner — скриптуемый reasoner.Client: каждой стадии назначается
// своя функция, вызовы считаются.
type fakeReasoner struct {
	mu          sync.Mutex
	createCalls int
	stageCalls  map[string]int
	lastTask    map[string]string

	generate func(stage, task string) (reasoner.Result, error)
}

func newFakeReasoner(generate func(stage, task string) (reasoner.Result, error)) *fakeReasoner {
	return &fakeReasoner{
		stageCalls: make(map[string]int),
		lastTask:   make(map[string]string),
		generate:   generate,
	}
}

func (f *fakeReasoner) CreateAssistant(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	return "asst_test", nil
}

func (f *fakeReasoner) Generate(_ context.Context, stage, task string) (reasoner.Result, error) {
	f.mu.Lock()
	f.stageCalls[stage]++
	f.lastTask[stage] = task
	f.mu.Unlock()
	return f.generate(stage, task)
}

func (f *fakeReasoner) calls(stage string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stageCalls[stage]
}

func (f *fakeReasoner) task(stage string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastTask[stage]
}

type testEnv struct {
	orc      *Orchestrator
	rsn      *fakeReasoner
	memory   *memrepo.MemoryStore
	sessions *memrepo.SessionStore
	recorder *sessionlog.Recorder
}

func newTestEnv(t *testing.T, generate func(stage, task string) (reasoner.Result, error)) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	metrics := infra.NewMetrics(nil)
	cfg := infra.EngineConfig{
		PriceWeightDirection: "direct",
		SessionBufferSize:    16,
		SessionFlushInterval: 5 * time.Millisecond,
	}

	rsn := newFakeReasoner(generate)
	memStore := memrepo.NewMemoryStore()
	sessions := memrepo.NewSessionStore()

	recorder := sessionlog.NewRecorder(sessions, cfg, metrics, logger)
	recorder.Start()

	orc := NewOrchestrator(
		memStore, sessions, memrepo.NewMetaStore(),
		rsn, recorder, catalog.New(),
		authority.NewPolicyCache(memrepo.NewPolicyStore(), nil, logger),
		cfg, metrics, logger,
	)

	return &testEnv{orc: orc, rsn: rsn, memory: memStore, sessions: sessions, recorder: recorder}
}

func okGenerate(cartJSON, explanation string) func(stage, task string) (reasoner.Result, error) {
	return func(stage, _ string) (reasoner.Result, error) {
		if stage == reasoner.StageSelection {
			return reasoner.Result{Content: cartJSON, Model: "test"}, nil
		}
		return reasoner.Result{Content: explanation, Model: "test"}, nil
	}
}

func inventoryFixture() []domain.InventoryItem {
	return []domain.InventoryItem{
		{Name: "Bose Speaker", Price: 90, Brand: "Bose", Tags: []string{"electronics", "audio"}},
		{Name: "Desk Lamp", Price: 25, Brand: "Acme", Tags: []string{"office"}},
		{Name: "Sneakers", Price: 60, Brand: "Nike", Tags: []string{"clothing"}},
	}
}

func TestRecommendValidation(t *testing.T) {
	env := newTestEnv(t, okGenerate(`{"items":[],"total":0}`, "ok"))
	defer env.recorder.Stop()
	ctx := context.Background()

	var vErr *ValidationError

	_, err := env.orc.Recommend(ctx, RecommendRequest{})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "userId", vErr.Field)

	bad := 6
	_, err = env.orc.Recommend(ctx, RecommendRequest{UserID: "u1", PriceSensitivity: &bad})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "priceSensitivity", vErr.Field)
}

func TestRecommendHappyPath(t *testing.T) {
	cart := `{"items":[{"name":"Desk Lamp","brand":"Acme","price":25}],"total":25,"notes":"ok"}`
	env := newTestEnv(t, okGenerate(cart, "Picked a lamp for your desk."))
	ctx := context.Background()

	res, err := env.orc.Recommend(ctx, RecommendRequest{
		UserID:            "u1",
		Products:          inventoryFixture(),
		ShoppingIntent:    "home office setup",
		AllowedCategories: []string{"office"},
	})
	require.NoError(t, err)

	assert.Equal(t, cart, res.Cart)
	assert.Equal(t, "Picked a lamp for your desk.", res.Explanation)
	assert.Equal(t, 1, env.rsn.calls(reasoner.StageSelection))
	assert.Equal(t, 1, env.rsn.calls(reasoner.StageExplanation))

	// Stop дожимает буфер — после него сессия видна в сторе
	env.recorder.Stop()
	latest, err := env.sessions.LatestByUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, cart, latest.Cart)
	// В снимок попадают только товары, прошедшие фильтр категорий
	require.Len(t, latest.InventorySnapshot, 1)
	assert.Equal(t, "Desk Lamp", latest.InventorySnapshot[0].Name)
}

func TestRecommendAssistantInitializedOnce(t *testing.T) {
	env := newTestEnv(t, okGenerate(`{"items":[],"total":0}`, "ok"))
	defer env.recorder.Stop()
	ctx := context.Background()

	req := RecommendRequest{UserID: "u1", Products: inventoryFixture()}
	_, err := env.orc.Recommend(ctx, req)
	require.NoError(t, err)
	_, err = env.orc.Recommend(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 1, env.rsn.createCalls)
}

func TestRecommendAgentDisabled(t *testing.T) {
	env := newTestEnv(t, okGenerate(`{"items":[],"total":0}`, "ok"))
	defer env.recorder.Stop()

	disabled := false
	res, err := env.orc.Recommend(context.Background(), RecommendRequest{
		UserID:       "u1",
		Products:     inventoryFixture(),
		AgentEnabled: &disabled,
	})
	require.NoError(t, err)

	assert.Contains(t, res.Cart, "Agent disabled by user.")
	assert.Contains(t, res.Explanation, "disabled")
	// Reasoner на стадии генерации не вызывался вовсе
	assert.Zero(t, env.rsn.calls(reasoner.StageSelection))
	assert.Zero(t, env.rsn.calls(reasoner.StageExplanation))
}

func TestRecommendNoMatchingInventory(t *testing.T) {
	env := newTestEnv(t, okGenerate(`{"items":[],"total":0}`, "ok"))
	defer env.recorder.Stop()

	res, err := env.orc.Recommend(context.Background(), RecommendRequest{
		UserID:            "u1",
		Products:          inventoryFixture(),
		AllowedCategories: []string{"food"},
	})
	require.NoError(t, err)

	// Явный ответ вместо тихого отката к полному списку
	assert.Contains(t, res.Cart, "No inventory items match the allowed categories.")
	assert.Contains(t, res.Explanation, "allowed categories")
	assert.Zero(t, env.rsn.calls(reasoner.StageSelection))
}

func TestRecommendEmptyInventory(t *testing.T) {
	env := newTestEnv(t, okGenerate(`{"items":[],"total":0}`, "ok"))
	defer env.recorder.Stop()

	// Без категорий и без товаров — ответ про пустой инвентарь,
	// а не про непрошедший фильтр категорий
	res, err := env.orc.Recommend(context.Background(), RecommendRequest{UserID: "u1"})
	require.NoError(t, err)

	assert.Contains(t, res.Cart, "No inventory items were provided.")
	assert.NotContains(t, res.Cart, "allowed categories")
	assert.Zero(t, env.rsn.calls(reasoner.StageSelection))
}

func TestRecommendSelectionTimeout(t *testing.T) {
	env := newTestEnv(t, func(stage, _ string) (reasoner.Result, error) {
		if stage == reasoner.StageSelection {
			return reasoner.Result{}, &reasoner.TimeoutError{Stage: stage}
		}
		return reasoner.Result{Content: "ok"}, nil
	})
	defer env.recorder.Stop()

	_, err := env.orc.Recommend(context.Background(), RecommendRequest{
		UserID:   "u1",
		Products: inventoryFixture(),
	})

	require.ErrorIs(t, err, ErrSelectionTimeout)
	// Стадия выбора без retry: ровно один вызов
	assert.Equal(t, 1, env.rsn.calls(reasoner.StageSelection))
	assert.Zero(t, env.rsn.calls(reasoner.StageExplanation))
}

func TestRecommendExplanationTimeoutFallback(t *testing.T) {
	cart := `{"items":[{"name":"Desk Lamp","brand":"Acme","price":25},{"name":"Bose Speaker","brand":"Bose","price":90}],"total":115,"notes":"ok"}`
	env := newTestEnv(t, func(stage, _ string) (reasoner.Result, error) {
		if stage == reasoner.StageSelection {
			return reasoner.Result{Content: cart}, nil
		}
		return reasoner.Result{}, &reasoner.TimeoutError{Stage: stage}
	})
	defer env.recorder.Stop()

	res, err := env.orc.Recommend(context.Background(), RecommendRequest{
		UserID:   "u1",
		Products: inventoryFixture(),
	})
	require.NoError(t, err)

	// Один повтор на таймаут, затем детерминированный текст из решения
	assert.Equal(t, 2, env.rsn.calls(reasoner.StageExplanation))
	assert.Equal(t, cart, res.Cart)
	assert.Contains(t, res.Explanation, "Picked 2 item(s)")
	assert.Contains(t, res.Explanation, "Desk Lamp (Acme)")
	assert.Contains(t, res.Explanation, "$115.00")
}

func TestRecommendUpstreamErrorPropagates(t *testing.T) {
	env := newTestEnv(t, func(stage, _ string) (reasoner.Result, error) {
		if stage == reasoner.StageSelection {
			return reasoner.Result{Content: `{"items":[],"total":0}`}, nil
		}
		return reasoner.Result{}, &reasoner.UpstreamError{Stage: stage, Status: 500}
	})
	defer env.recorder.Stop()

	_, err := env.orc.Recommend(context.Background(), RecommendRequest{
		UserID:   "u1",
		Products: inventoryFixture(),
	})

	var uErr *reasoner.UpstreamError
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, reasoner.StageExplanation, uErr.Stage)
	// Не-таймаут не ретраится
	assert.Equal(t, 1, env.rsn.calls(reasoner.StageExplanation))
}

func TestRecommendSessionPreferencesOverrideAvoid(t *testing.T) {
	env := newTestEnv(t, okGenerate(`{"items":[],"total":0}`, "ok"))
	defer env.recorder.Stop()
	ctx := context.Background()

	// Без сессионного предпочтения "samsung" остается в avoid
	_, err := env.orc.Recommend(ctx, RecommendRequest{UserID: "u1", Products: inventoryFixture()})
	require.NoError(t, err)
	assert.Contains(t, env.rsn.task(reasoner.StageSelection), `"samsung"`)

	// Явно предпочтенный в этом запросе бренд выпадает из avoid
	_, err = env.orc.Recommend(ctx, RecommendRequest{
		UserID:           "u2",
		Products:         inventoryFixture(),
		BrandPreferences: []string{"Samsung"},
	})
	require.NoError(t, err)
	assert.NotContains(t, env.rsn.task(reasoner.StageSelection), `"samsung"`)
}

func TestRecommendMergesSessionPreferencesIntoMemory(t *testing.T) {
	env := newTestEnv(t, okGenerate(`{"items":[],"total":0}`, "ok"))
	defer env.recorder.Stop()
	ctx := context.Background()

	budget := 250.0
	ps := 5
	_, err := env.orc.Recommend(ctx, RecommendRequest{
		UserID:           "u1",
		Products:         inventoryFixture(),
		MaxSpend:         &budget,
		PriceSensitivity: &ps,
		BrandPreferences: []string{"Sony"},
	})
	require.NoError(t, err)

	mem, err := env.memory.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, mem)

	// Sorted union дефолтных и сессионных брендов
	assert.Equal(t, []string{"Apple", "Bose", "Logitech", "Sony"}, mem.PreferredBrands)
	assert.Equal(t, 250.0, mem.PriceSensitivity.MaxCart)
	// ps=5 при direction=direct дает максимальный вес цены
	assert.Equal(t, 0.4, mem.Weights.Price)
}

func TestFeedbackMergesIntoMemory(t *testing.T) {
	env := newTestEnv(t, okGenerate(`{"items":[],"total":0}`, "ok"))
	defer env.recorder.Stop()
	ctx := context.Background()

	// Снимок последней сессии дает learner'у бренды и теги
	require.NoError(t, env.sessions.InsertBatch(ctx, []domain.Session{{
		ID:     "s1",
		UserID: "u1",
		InventorySnapshot: []domain.InventoryItem{
			{Name: "Bose Speaker", Brand: "Bose", Tags: []string{"audio"}},
		},
		Timestamp: time.Now().UTC(),
	}}))

	err := env.orc.Feedback(ctx, FeedbackRequest{
		UserID:              "u1",
		KeptItems:           []string{"Bose Speaker"},
		RejectedItemsLegacy: []string{"RGB Keyboard"},
		Reason:              "too flashy for my desk",
	})
	require.NoError(t, err)

	mem, err := env.memory.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, mem)

	assert.Equal(t, 1, mem.KeptItemCounts["Bose Speaker"])
	assert.Equal(t, 1, mem.RejectedItemCounts["RGB Keyboard"])
	assert.Contains(t, mem.RejectionPatterns, "rgb keyboard")
	assert.Contains(t, mem.PreferredTags, "audio")

	// Правка фиксируется целиком, включая комментарий пользователя
	corrections := env.sessions.Corrections()
	require.Len(t, corrections, 1)
	assert.Equal(t, "s1", corrections[0].SessionID)
	assert.Equal(t, []string{"RGB Keyboard"}, corrections[0].RejectedItems)
	assert.Equal(t, "too flashy for my desk", corrections[0].Reason)
}

func TestFeedbackRequiresUserID(t *testing.T) {
	env := newTestEnv(t, okGenerate(`{"items":[],"total":0}`, "ok"))
	defer env.recorder.Stop()

	var vErr *ValidationError
	err := env.orc.Feedback(context.Background(), FeedbackRequest{})
	require.ErrorAs(t, err, &vErr)
}

func TestBundleFillsGapsFromPolicy(t *testing.T) {
	env := newTestEnv(t, okGenerate(`{"items":[],"total":0}`, "ok"))
	defer env.recorder.Stop()
	ctx := context.Background()

	// Пустой запрос: бюджет и категории добираются из дефолтной политики
	res, err := env.orc.Bundle(ctx, "u1", BundleRequest{PersonaID: "alex"})
	require.NoError(t, err)

	require.NotEmpty(t, res.Items)
	assert.LessOrEqual(t, res.Subtotal, 150.0)
	for _, item := range res.Items {
		assert.Contains(t, []string{"office", "electronics"}, item.Category)
	}
}

func TestBundleRespectsDisableOverride(t *testing.T) {
	env := newTestEnv(t, okGenerate(`{"items":[],"total":0}`, "ok"))
	defer env.recorder.Stop()

	disabled := false
	res, err := env.orc.Bundle(context.Background(), "u1", BundleRequest{AgentEnabled: &disabled})
	require.NoError(t, err)

	assert.Empty(t, res.Items)
}

func TestBundleValidatesMaxSpend(t *testing.T) {
	env := newTestEnv(t, okGenerate(`{"items":[],"total":0}`, "ok"))
	defer env.recorder.Stop()

	var vErr *ValidationError
	_, err := env.orc.Bundle(context.Background(), "u1", BundleRequest{MaxSpend: -10})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "maxSpend", vErr.Field)
}

func TestExplainEmptyBundle(t *testing.T) {
	env := newTestEnv(t, okGenerate(`{"items":[],"total":0}`, "ok"))
	defer env.recorder.Stop()

	text, err := env.orc.Explain(context.Background(), ExplainRequest{Intent: "anything"})
	require.NoError(t, err)
	assert.Contains(t, text, "empty")
	assert.Zero(t, env.rsn.calls(reasoner.StageExplanation))
}

func TestExplainTimeoutFallback(t *testing.T) {
	env := newTestEnv(t, func(stage, _ string) (reasoner.Result, error) {
		return reasoner.Result{}, &reasoner.TimeoutError{Stage: stage}
	})
	defer env.recorder.Stop()

	text, err := env.orc.Explain(context.Background(), ExplainRequest{
		Intent: "desk setup",
		Bundle: domain.BundleResult{
			Items:    []domain.BundleItem{{ID: "p1", Title: "Desk Lamp", Merchant: "Acme", Price: 25}},
			Subtotal: 25,
			Currency: "USD",
		},
	})
	require.NoError(t, err)

	assert.Contains(t, text, "Picked 1 item(s)")
	assert.Contains(t, text, "Desk Lamp (Acme)")
	assert.Equal(t, 2, env.rsn.calls(reasoner.StageExplanation))
}

func TestResolveBudgetPrecedence(t *testing.T) {
	spend := 300.0
	legacy := 100.0

	assert.Equal(t, 300.0, resolveBudget(RecommendRequest{MaxSpend: &spend, MaxTotal: &legacy}))
	assert.Equal(t, 100.0, resolveBudget(RecommendRequest{MaxTotal: &legacy}))
	assert.Equal(t, defaultBudget, resolveBudget(RecommendRequest{}))
}

func TestRebalanceWeights(t *testing.T) {
	base := domain.Weights{EcosystemFit: 0.4, Design: 0.3, Price: 0.2}

	tests := []struct {
		name      string
		ps        int
		direction string
		want      domain.Weights
	}{
		{
			name:      "direct minimum sensitivity",
			ps:        1,
			direction: "direct",
			want:      domain.Weights{Price: 0.15, EcosystemFit: 0.486, Design: 0.364},
		},
		{
			name:      "direct maximum sensitivity",
			ps:        5,
			direction: "direct",
			want:      domain.Weights{Price: 0.4, EcosystemFit: 0.343, Design: 0.257},
		},
		{
			name:      "inverse mirrors the scale",
			ps:        5,
			direction: "inverse",
			want:      domain.Weights{Price: 0.15, EcosystemFit: 0.486, Design: 0.364},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rebalanceWeights(base, tt.ps, tt.direction)
			assert.InDelta(t, tt.want.Price, got.Price, 0.0005)
			assert.InDelta(t, tt.want.EcosystemFit, got.EcosystemFit, 0.0005)
			assert.InDelta(t, tt.want.Design, got.Design, 0.0005)
		})
	}
}

func TestRebalanceWeightsZeroBase(t *testing.T) {
	got := rebalanceWeights(domain.Weights{}, 3, "direct")

	// Нулевая база двух других весов заменяется дефолтным соотношением 0.4/0.3
	assert.InDelta(t, 0.275, got.Price, 0.0005)
	assert.InDelta(t, 0.414, got.EcosystemFit, 0.0005)
	assert.InDelta(t, 0.311, got.Design, 0.0005)
}

func TestBuildAvoidList(t *testing.T) {
	avoid := buildAvoidList([]string{"RGB", "samsung", " flashy ", ""}, []string{"samsung"})

	assert.Equal(t, []string{"rgb", "flashy"}, avoid)
}

func TestStripCodeFences(t *testing.T) {
	fenced := "```json\n{\"items\":[]}\n```"
	assert.Equal(t, `{"items":[]}`, stripCodeFences(fenced))
	assert.Equal(t, `{"items":[]}`, stripCodeFences(`{"items":[]}`))
}

func TestFallbackFromDecisionMalformedJSON(t *testing.T) {
	text := fallbackFromDecision("not json at all", domain.DefaultMemory(500))
	assert.Contains(t, text, "temporarily unavailable")
}

var _ reasoner.Client = (*fakeReasoner)(nil)

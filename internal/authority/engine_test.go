package authority

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/domain"
	"github.com/LaithAlz/me-agent/internal/infra"
	memrepo "github.com/LaithAlz/me-agent/internal/repository/memory"
)

func newTestEngine(t *testing.T) (*Engine, *PolicyCache, *memrepo.AuditLog) {
	t.Helper()
	logger := zap.NewNop()
	audit := memrepo.NewAuditLog()
	cache := NewPolicyCache(memrepo.NewPolicyStore(), nil, logger)
	return NewEngine(cache, audit, infra.NewMetrics(nil), logger), cache, audit
}

func savePolicy(t *testing.T, cache *PolicyCache, userID string, p domain.AgentPolicy) {
	t.Helper()
	require.NoError(t, cache.Save(context.Background(), userID, p))
}

func TestCheckRules(t *testing.T) {
	basePolicy := domain.AgentPolicy{
		MaxSpend:          150,
		AllowedCategories: []string{"office", "electronics"},
		AgentEnabled:      true,
		RequireConfirm:    true,
	}

	cartTotal := func(v float64) *float64 { return &v }

	tests := []struct {
		name         string
		policy       domain.AgentPolicy
		req          CheckRequest
		wantDecision string
		wantInReason []string
	}{
		{
			name:         "agent disabled blocks everything",
			policy:       domain.AgentPolicy{MaxSpend: 10000, AllowedCategories: []string{"office"}, AgentEnabled: false, RequireConfirm: false},
			req:          CheckRequest{Action: "addToCart", CartTotal: cartTotal(1)},
			wantDecision: domain.DecisionBlock,
			wantInReason: []string{"disabled"},
		},
		{
			name:         "cart total over limit",
			policy:       basePolicy,
			req:          CheckRequest{Action: "addToCart", CartTotal: cartTotal(200)},
			wantDecision: domain.DecisionBlock,
			wantInReason: []string{"200.00", "150.00"},
		},
		{
			name:         "cart total at limit allowed",
			policy:       basePolicy,
			req:          CheckRequest{Action: "addToCart", CartTotal: cartTotal(150)},
			wantDecision: domain.DecisionAllow,
		},
		{
			name:         "unauthorized category",
			policy:       basePolicy,
			req:          CheckRequest{Action: "addToCart", CartTotal: cartTotal(50), Categories: []string{"toys"}},
			wantDecision: domain.DecisionBlock,
			wantInReason: []string{"toys"},
		},
		{
			name:         "category check is case-insensitive",
			policy:       basePolicy,
			req:          CheckRequest{Action: "addToCart", Categories: []string{"Office"}},
			wantDecision: domain.DecisionAllow,
		},
		{
			name:         "checkout requires confirmation",
			policy:       basePolicy,
			req:          CheckRequest{Action: "checkoutStart", CartTotal: cartTotal(50)},
			wantDecision: domain.DecisionBlock,
			wantInReason: []string{"confirmation"},
		},
		{
			name:         "checkout allowed when confirm off",
			policy:       domain.AgentPolicy{MaxSpend: 150, AllowedCategories: []string{"office"}, AgentEnabled: true, RequireConfirm: false},
			req:          CheckRequest{Action: "checkoutStart", CartTotal: cartTotal(50)},
			wantDecision: domain.DecisionAllow,
		},
		{
			name:         "plain action permitted",
			policy:       basePolicy,
			req:          CheckRequest{Action: "addToCart"},
			wantDecision: domain.DecisionAllow,
			wantInReason: []string{"permitted"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, cache, _ := newTestEngine(t)
			savePolicy(t, cache, "u1", tt.policy)

			res, err := engine.Check(context.Background(), "u1", tt.req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantDecision, res.Decision)
			for _, part := range tt.wantInReason {
				assert.Contains(t, res.Reason, part)
			}
			assert.NotEmpty(t, res.AuditEventID)
		})
	}
}

func TestCheckItemsPath(t *testing.T) {
	engine, cache, _ := newTestEngine(t)
	savePolicy(t, cache, "u1", domain.AgentPolicy{
		MaxSpend:          500,
		AllowedCategories: []string{"office"},
		AgentEnabled:      true,
		RequireConfirm:    false,
	})

	items := []domain.CartItem{
		{ID: "1", Title: "Desk Lamp", Category: "office"},
		{ID: "2", Title: "Gaming Console", Category: "electronics"},
		{ID: "3", Title: "Sneakers", Category: "clothing"},
		{ID: "4", Title: "Blender", Category: "home"},
		{ID: "5", Title: "Novel", Category: "books"},
	}

	res, err := engine.Check(context.Background(), "u1", CheckRequest{Action: "addToCart", Items: items})
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionBlock, res.Decision)
	// blockedItems — полный список нарушителей, в reason — максимум 3 имени
	assert.Len(t, res.BlockedItems, 4)
	assert.Contains(t, res.Reason, "Gaming Console")
	assert.Contains(t, res.Reason, "Sneakers")
	assert.Contains(t, res.Reason, "Blender")
	assert.NotContains(t, res.Reason, "Novel")
}

func TestEveryCheckProducesOneAuditEvent(t *testing.T) {
	engine, cache, audit := newTestEngine(t)
	savePolicy(t, cache, "u1", domain.DefaultPolicy())

	ctx := context.Background()
	total := 200.0

	// ALLOW и BLOCK журналируются одинаково
	_, err := engine.Check(ctx, "u1", CheckRequest{Action: "viewProduct"})
	require.NoError(t, err)
	_, err = engine.Check(ctx, "u1", CheckRequest{Action: "addToCart", CartTotal: &total})
	require.NoError(t, err)

	events, err := audit.List(ctx, "u1", 50)
	require.NoError(t, err)
	require.Len(t, events, 2)

	decisions := []string{events[0].Decision, events[1].Decision}
	assert.Contains(t, decisions, domain.DecisionAllow)
	assert.Contains(t, decisions, domain.DecisionBlock)
}

func TestPolicySnapshotIsolation(t *testing.T) {
	engine, cache, audit := newTestEngine(t)
	ctx := context.Background()

	savePolicy(t, cache, "u1", domain.AgentPolicy{
		MaxSpend:          150,
		AllowedCategories: []string{"office"},
		AgentEnabled:      true,
		RequireConfirm:    true,
	})

	_, err := engine.Check(ctx, "u1", CheckRequest{Action: "addToCart"})
	require.NoError(t, err)

	// Последующая правка политики не должна менять историю
	savePolicy(t, cache, "u1", domain.AgentPolicy{
		MaxSpend:          9999,
		AllowedCategories: []string{"food"},
		AgentEnabled:      false,
		RequireConfirm:    false,
	})

	events, err := audit.List(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	snap := events[0].PolicySnapshot
	assert.Equal(t, 150.0, snap.MaxSpend)
	assert.Equal(t, []string{"office"}, snap.AllowedCategories)
	assert.True(t, snap.AgentEnabled)
}

func TestLazyDefaultPolicy(t *testing.T) {
	_, cache, _ := newTestEngine(t)

	p, err := cache.GetPolicy(context.Background(), "brand-new-user")
	require.NoError(t, err)

	assert.Equal(t, 150.0, p.MaxSpend)
	assert.Equal(t, []string{"office", "electronics"}, p.AllowedCategories)
	assert.True(t, p.AgentEnabled)
	assert.True(t, p.RequireConfirm)
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "lowercase trim dedupe",
			in:   []string{" Office ", "office", "ELECTRONICS"},
			want: []string{"office", "electronics"},
		},
		{
			name: "empty set falls back to full list",
			in:   nil,
			want: []string{"beauty", "books", "clothing", "electronics", "food", "home", "office", "sports"},
		},
		{
			name: "blank entries dropped",
			in:   []string{"", "  ", "books"},
			want: []string{"books"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := AgentPolicy{AllowedCategories: tt.in}.Normalize()
			assert.Equal(t, tt.want, p.AllowedCategories)
		})
	}
}

func TestPolicyNormalizeIdempotent(t *testing.T) {
	p := AgentPolicy{AllowedCategories: []string{"Office", "office", "Home"}}.Normalize()
	assert.Equal(t, p, p.Normalize())
}

func TestPolicyAllowsCategory(t *testing.T) {
	p := DefaultPolicy()

	assert.True(t, p.AllowsCategory("office"))
	assert.True(t, p.AllowsCategory(" Electronics "))
	assert.False(t, p.AllowsCategory("toys"))
	assert.False(t, p.AllowsCategory(""))
}

func TestPolicyCloneIsolation(t *testing.T) {
	p := DefaultPolicy()
	clone := p.Clone()

	clone.AllowedCategories[0] = "food"

	assert.Equal(t, "office", p.AllowedCategories[0])
}

func TestPolicyUpdateValidate(t *testing.T) {
	neg := -1.0
	bad := []string{"toys"}
	good := []string{"Office"}

	assert.Error(t, PolicyUpdate{MaxSpend: &neg}.Validate())
	assert.Error(t, PolicyUpdate{AllowedCategories: &bad}.Validate())
	assert.NoError(t, PolicyUpdate{AllowedCategories: &good}.Validate())
	assert.NoError(t, PolicyUpdate{}.Validate())
}

func TestPolicyUpdateApplyToPartialMerge(t *testing.T) {
	base := DefaultPolicy()

	spend := 300.0
	disabled := false
	merged := PolicyUpdate{MaxSpend: &spend, AgentEnabled: &disabled}.ApplyTo(base)

	assert.Equal(t, 300.0, merged.MaxSpend)
	assert.False(t, merged.AgentEnabled)
	// Непереданные поля не трогаются
	assert.Equal(t, base.AllowedCategories, merged.AllowedCategories)
	assert.True(t, merged.RequireConfirm)
}

func TestSummarize(t *testing.T) {
	now := time.Now().UTC()
	events := []AuditEvent{
		{ID: "evt_3", TS: now, Action: "checkoutStart", Decision: DecisionBlock},
		{ID: "evt_2", TS: now.Add(-time.Minute), Action: "addToCart", Decision: DecisionAllow},
		{ID: "evt_1", TS: now.Add(-2 * time.Minute), Action: "addToCart", Decision: DecisionAllow},
	}

	s := Summarize("u1", events)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Allowed)
	assert.Equal(t, 1, s.Blocked)
	assert.Equal(t, 33.3, s.BlockRate)
	require.NotNil(t, s.MostRecent)
	assert.Equal(t, "evt_3", s.MostRecent.ID)
	assert.Equal(t, map[string]int{"addToCart": 2, "checkoutStart": 1}, s.ActionCounts)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize("u1", nil)

	assert.Zero(t, s.Total)
	assert.Zero(t, s.BlockRate)
	assert.Nil(t, s.MostRecent)
}

func TestNewEventID(t *testing.T) {
	id := NewEventID()

	assert.Len(t, id, len("evt_")+12)
	assert.Equal(t, "evt_", id[:4])
	assert.NotEqual(t, id, NewEventID())
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 10.11, RoundMoney(10.111))
	assert.Equal(t, 10.12, RoundMoney(10.116))
	assert.Equal(t, 0.0, RoundMoney(0))
}

func TestCapCounts(t *testing.T) {
	counts := map[string]int{
		"a": 5, "b": 1, "c": 3, "d": 1, "e": 2,
	}

	CapCounts(counts, 3)

	// Выживают по частоте; ничья 1 vs 1 решается лексикографически
	assert.Equal(t, map[string]int{"a": 5, "c": 3, "e": 2}, counts)
}

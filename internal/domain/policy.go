package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Decision определяет исход проверки Authority Engine.
const (
	DecisionAllow = "ALLOW"
	DecisionBlock = "BLOCK"
)

// ValidCategories — закрытый список категорий, которые можно разрешить в политике.
var ValidCategories = map[string]struct{}{
	"office":      {},
	"electronics": {},
	"clothing":    {},
	"home":        {},
	"sports":      {},
	"books":       {},
	"beauty":      {},
	"food":        {},
}

// AgentPolicy — персональная политика, ограничивающая автономные действия агента.
type AgentPolicy struct {
	MaxSpend          float64  `json:"maxSpend"`
	AllowedCategories []string `json:"allowedCategories"`
	AgentEnabled      bool     `json:"agentEnabled"`
	RequireConfirm    bool     `json:"requireConfirm"`
}

// PolicyRecord — политика вместе с метаданными хранения.
type PolicyRecord struct {
	UserID    string      `json:"userId"`
	Policy    AgentPolicy `json:"policy"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// DefaultPolicy возвращает политику по умолчанию. Создается лениво при первом чтении.
func DefaultPolicy() AgentPolicy {
	return AgentPolicy{
		MaxSpend:          150,
		AllowedCategories: []string{"office", "electronics"},
		AgentEnabled:      true,
		RequireConfirm:    true,
	}
}

// fullCategoryList — отсортированный полный список валидных категорий.
// Используется как fallback для пустых/legacy наборов.
func fullCategoryList() []string {
	out := make([]string, 0, len(ValidCategories))
	for c := range ValidCategories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Normalize приводит категории к нижнему регистру, убирает дубли и пустые значения.
// Инвариант: после нормализации список категорий никогда не пустой —
// пустой/legacy набор заменяется полным списком валидных категорий.
func (p AgentPolicy) Normalize() AgentPolicy {
	seen := make(map[string]struct{}, len(p.AllowedCategories))
	cats := make([]string, 0, len(p.AllowedCategories))
	for _, c := range p.AllowedCategories {
		nc := strings.ToLower(strings.TrimSpace(c))
		if nc == "" {
			continue
		}
		if _, ok := seen[nc]; ok {
			continue
		}
		seen[nc] = struct{}{}
		cats = append(cats, nc)
	}

	if len(cats) == 0 {
		cats = fullCategoryList()
	}

	p.AllowedCategories = cats
	return p
}

// Clone возвращает независимую копию политики (snapshot-изоляция для аудита).
func (p AgentPolicy) Clone() AgentPolicy {
	cats := make([]string, len(p.AllowedCategories))
	copy(cats, p.AllowedCategories)
	p.AllowedCategories = cats
	return p
}

// AllowsCategory проверяет вхождение категории без учета регистра.
func (p AgentPolicy) AllowsCategory(category string) bool {
	nc := strings.ToLower(strings.TrimSpace(category))
	for _, c := range p.AllowedCategories {
		if c == nc {
			return true
		}
	}
	return false
}

// PolicyUpdate — частичное обновление политики: только переданные поля меняются.
type PolicyUpdate struct {
	MaxSpend          *float64  `json:"maxSpend,omitempty"`
	AllowedCategories *[]string `json:"allowedCategories,omitempty"`
	AgentEnabled      *bool     `json:"agentEnabled,omitempty"`
	RequireConfirm    *bool     `json:"requireConfirm,omitempty"`
}

// Validate проверяет границы значений до мержа.
func (u PolicyUpdate) Validate() error {
	if u.MaxSpend != nil && *u.MaxSpend < 0 {
		return fmt.Errorf("maxSpend must be non-negative")
	}
	if u.AllowedCategories != nil {
		for _, c := range *u.AllowedCategories {
			nc := strings.ToLower(strings.TrimSpace(c))
			if _, ok := ValidCategories[nc]; !ok {
				return fmt.Errorf("invalid category %q", c)
			}
		}
	}
	return nil
}

// ApplyTo мержит обновление на существующую политику и нормализует результат.
func (u PolicyUpdate) ApplyTo(p AgentPolicy) AgentPolicy {
	if u.MaxSpend != nil {
		p.MaxSpend = *u.MaxSpend
	}
	if u.AllowedCategories != nil {
		p.AllowedCategories = *u.AllowedCategories
	}
	if u.AgentEnabled != nil {
		p.AgentEnabled = *u.AgentEnabled
	}
	if u.RequireConfirm != nil {
		p.RequireConfirm = *u.RequireConfirm
	}
	return p.Normalize()
}

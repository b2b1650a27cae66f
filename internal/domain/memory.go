package domain

import "sort"

// CountMapCap — максимальный размер счетчиков kept/rejected.
// При переполнении вытесняются записи с наименьшей частотой.
const CountMapCap = 80

// Weights — веса критериев выбора. В исходном профиле в сумме 0.9,
// остаток добирается reasoner'ом по контексту.
type Weights struct {
	EcosystemFit float64 `json:"ecosystem_fit"`
	Design       float64 `json:"design"`
	Price        float64 `json:"price"`
}

// PriceSensitivity — бюджетная часть профиля.
type PriceSensitivity struct {
	MaxCart float64 `json:"max_cart"`
}

// MemoryPayload — накопленный shopping-профиль пользователя.
// Мутируется оркестратором (сессионные предпочтения) и Feedback Learner'ом
// (сигналы kept/rejected); никогда не удаляется.
type MemoryPayload struct {
	PreferredBrands    []string         `json:"preferred_brands"`
	PreferredTags      []string         `json:"preferred_tags"`
	KeptItemCounts     map[string]int   `json:"kept_item_counts"`
	RejectedItemCounts map[string]int   `json:"rejected_item_counts"`
	RejectionPatterns  []string         `json:"rejection_patterns"`
	PriceSensitivity   PriceSensitivity `json:"price_sensitivity"`
	Weights            Weights          `json:"weights"`
}

// DefaultMemory — стартовый профиль для нового пользователя.
func DefaultMemory(maxCart float64) MemoryPayload {
	return MemoryPayload{
		PreferredBrands:    []string{"Apple", "Bose", "Logitech"},
		PreferredTags:      []string{},
		KeptItemCounts:     map[string]int{},
		RejectedItemCounts: map[string]int{},
		RejectionPatterns:  []string{"rgb", "samsung", "flashy"},
		PriceSensitivity:   PriceSensitivity{MaxCart: maxCart},
		Weights:            Weights{EcosystemFit: 0.4, Design: 0.3, Price: 0.2},
	}
}

// Clone возвращает глубокую копию профиля.
func (m MemoryPayload) Clone() MemoryPayload {
	out := m
	out.PreferredBrands = append([]string(nil), m.PreferredBrands...)
	out.PreferredTags = append([]string(nil), m.PreferredTags...)
	out.RejectionPatterns = append([]string(nil), m.RejectionPatterns...)
	out.KeptItemCounts = make(map[string]int, len(m.KeptItemCounts))
	for k, v := range m.KeptItemCounts {
		out.KeptItemCounts[k] = v
	}
	out.RejectedItemCounts = make(map[string]int, len(m.RejectedItemCounts))
	for k, v := range m.RejectedItemCounts {
		out.RejectedItemCounts[k] = v
	}
	return out
}

// EnsureDefaults дозаполняет нулевые поля у профилей, прочитанных из
// старых записей (legacy-документы без части полей).
func (m *MemoryPayload) EnsureDefaults() {
	if m.KeptItemCounts == nil {
		m.KeptItemCounts = map[string]int{}
	}
	if m.RejectedItemCounts == nil {
		m.RejectedItemCounts = map[string]int{}
	}
	if m.Weights == (Weights{}) {
		m.Weights = Weights{EcosystemFit: 0.4, Design: 0.3, Price: 0.2}
	}
}

// CapCounts ограничивает размер счетчика: остаются записи с наибольшей
// частотой, при равенстве — лексикографически меньший ключ (детерминизм).
func CapCounts(counts map[string]int, limit int) {
	if len(counts) <= limit {
		return
	}

	type kv struct {
		key   string
		count int
	}
	entries := make([]kv, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, kv{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})

	for _, e := range entries[limit:] {
		delete(counts, e.key)
	}
}

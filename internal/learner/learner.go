// Package learner — Feedback Learner: чистый мерж пользовательских сигналов
// (kept/rejected) в shopping-профиль. Без I/O: запись обратно делает
// вызывающий через MemoryStore.
package learner

import (
	"sort"
	"strings"

	"github.com/LaithAlz/me-agent/internal/domain"
)

const (
	topBrands = 6
	topTags   = 10
)

// Apply мержит фидбек в копию профиля и возвращает ее.
// Счетчики ведутся по trimmed-имени с сохранением регистра;
// в нижний регистр приводятся только rejection_patterns.
func Apply(memory domain.MemoryPayload, keptItems, rejectedItems []string, snapshot []domain.InventoryItem) domain.MemoryPayload {
	out := memory.Clone()
	out.EnsureDefaults()

	kept := cleanNames(keptItems)
	rejected := cleanNames(rejectedItems)

	for _, name := range kept {
		out.KeptItemCounts[name]++
	}
	for _, name := range rejected {
		out.RejectedItemCounts[name]++
	}
	domain.CapCounts(out.KeptItemCounts, domain.CountMapCap)
	domain.CapCounts(out.RejectedItemCounts, domain.CountMapCap)

	// Каждое отклоненное имя попадает в паттерны (нормализованным)
	if len(rejected) > 0 {
		patterns := make([]string, 0, len(rejected))
		for _, name := range rejected {
			patterns = append(patterns, strings.ToLower(name))
		}
		out.RejectionPatterns = sortedUnion(out.RejectionPatterns, patterns)
	}

	// По снимку инвентаря восстанавливаем бренды/теги оставленных позиций
	if len(snapshot) > 0 && len(kept) > 0 {
		brands, tags := resolvePreferences(kept, snapshot)
		out.PreferredBrands = unionPreserveOrder(out.PreferredBrands, topByFrequency(brands, topBrands))
		out.PreferredTags = unionPreserveOrder(out.PreferredTags, topByFrequency(tags, topTags))
	}

	return out
}

// cleanNames обрезает пробелы и отбрасывает пустые имена.
func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		t := strings.TrimSpace(n)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// freqEntry — счетчик с порядком первого появления для стабильных ничьих.
type freqEntry struct {
	value string
	count int
	seen  int
}

// resolvePreferences сопоставляет оставленные имена со снимком инвентаря
// (без учета регистра) и накапливает частоты брендов и тегов.
func resolvePreferences(kept []string, snapshot []domain.InventoryItem) ([]freqEntry, []freqEntry) {
	byName := make(map[string]domain.InventoryItem, len(snapshot))
	for _, item := range snapshot {
		byName[strings.ToLower(item.Name)] = item
	}

	var brands, tags []freqEntry
	brandIdx := make(map[string]int)
	tagIdx := make(map[string]int)

	bump := func(list *[]freqEntry, idx map[string]int, value string) {
		if value == "" {
			return
		}
		if i, ok := idx[value]; ok {
			(*list)[i].count++
			return
		}
		idx[value] = len(*list)
		*list = append(*list, freqEntry{value: value, count: 1, seen: len(*list)})
	}

	for _, name := range kept {
		item, ok := byName[strings.ToLower(name)]
		if !ok {
			continue
		}
		bump(&brands, brandIdx, item.Brand)
		for _, t := range item.Tags {
			bump(&tags, tagIdx, t)
		}
	}
	return brands, tags
}

// topByFrequency возвращает до limit значений: по убыванию частоты,
// при равенстве — в порядке первого появления.
func topByFrequency(entries []freqEntry, limit int) []string {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].seen < entries[j].seen
	})
	out := make([]string, 0, limit)
	for _, e := range entries {
		if len(out) == limit {
			break
		}
		out = append(out, e.value)
	}
	return out
}

// sortedUnion — объединение без дублей, результат отсортирован.
func sortedUnion(existing, extra []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(extra))
	out := make([]string, 0, len(existing)+len(extra))
	for _, s := range existing {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range extra {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// unionPreserveOrder — объединение без дублей с сохранением порядка
// (существующие значения остаются впереди).
func unionPreserveOrder(existing, extra []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(extra))
	out := make([]string, 0, len(existing)+len(extra))
	for _, s := range append(append([]string{}, existing...), extra...) {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

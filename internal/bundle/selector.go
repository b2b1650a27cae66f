// Package bundle — детерминированный отбор корзины: скоринг кандидатов по
// предпочтениям и жадное наполнение под бюджет. Никакого I/O и внешнего
// reasoner'а — чистая функция над каталогом.
package bundle

import (
	"sort"
	"strings"

	"github.com/LaithAlz/me-agent/internal/domain"
)

const (
	// MaxItems — верхняя граница размера корзины.
	MaxItems = 6
	// MinItems — целевой минимум: добираем дешевыми позициями, если скоринг дал меньше.
	MinItems = 3
)

// Input — параметры отбора.
type Input struct {
	Catalog           []domain.Product
	MaxSpend          float64
	AllowedCategories []string
	BrandPreferences  []string
	PastPurchases     []domain.PurchaseHistoryItem
	// CartReservations: product id -> уже зарезервированное количество
	CartReservations map[string]int
	AgentEnabled     bool
}

type candidate struct {
	product domain.Product
	score   int
	tags    []string
}

// Select собирает корзину. Детерминизм: одинаковый вход дает одинаковый
// результат, все сортировки имеют полный порядок (id — финальный tie-break).
func Select(in Input) domain.BundleResult {
	result := domain.BundleResult{Items: []domain.BundleItem{}, Currency: "USD"}

	// Агент выключен — алгоритм не запускается вовсе
	if !in.AgentEnabled {
		return result
	}

	candidates := buildCandidates(in)
	if len(candidates) == 0 {
		return result
	}

	// Скоринг-ранжирование: лучший score, дешевле, меньший id
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].product.Price != candidates[j].product.Price {
			return candidates[i].product.Price < candidates[j].product.Price
		}
		return candidates[i].product.ID < candidates[j].product.ID
	})

	subtotal := 0.0
	selected := make(map[string]bool)

	for _, c := range candidates {
		if len(result.Items) >= MaxItems {
			break
		}
		if subtotal+c.product.Price > in.MaxSpend {
			continue
		}
		result.Items = append(result.Items, toBundleItem(c))
		selected[c.product.ID] = true
		// Кумулятивное округление после каждого добавления
		subtotal = domain.RoundMoney(subtotal + c.product.Price)
	}

	// Добор до минимума: чисто по цене, без учета предпочтений
	if len(result.Items) < MinItems {
		byPrice := make([]candidate, len(candidates))
		copy(byPrice, candidates)
		sort.Slice(byPrice, func(i, j int) bool {
			if byPrice[i].product.Price != byPrice[j].product.Price {
				return byPrice[i].product.Price < byPrice[j].product.Price
			}
			return byPrice[i].product.ID < byPrice[j].product.ID
		})

		for _, c := range byPrice {
			if len(result.Items) >= MinItems {
				break
			}
			if selected[c.product.ID] {
				continue
			}
			if subtotal+c.product.Price > in.MaxSpend {
				continue
			}
			result.Items = append(result.Items, toBundleItem(c))
			selected[c.product.ID] = true
			subtotal = domain.RoundMoney(subtotal + c.product.Price)
		}
	}

	result.Subtotal = subtotal
	return result
}

// buildCandidates фильтрует каталог по остаткам и категориям и считает score.
func buildCandidates(in Input) []candidate {
	allowed := make(map[string]struct{}, len(in.AllowedCategories))
	for _, c := range in.AllowedCategories {
		allowed[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}

	pastVendors := make(map[string]struct{}, len(in.PastPurchases))
	pastIDs := make(map[string]struct{}, len(in.PastPurchases))
	for _, p := range in.PastPurchases {
		pastVendors[strings.ToLower(p.Vendor)] = struct{}{}
		pastIDs[p.ProductID] = struct{}{}
	}

	var out []candidate
	for _, p := range in.Catalog {
		remaining := p.StockQuantity - in.CartReservations[p.ID]
		if remaining <= 0 {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[strings.ToLower(p.Category)]; !ok {
				continue
			}
		}

		c := candidate{product: p, tags: []string{"Matches category", "Within budget"}}

		vendor := strings.ToLower(p.Vendor)
		title := strings.ToLower(p.Title)

		for _, pref := range in.BrandPreferences {
			np := strings.ToLower(strings.TrimSpace(pref))
			if np == "" {
				continue
			}
			if np == vendor || strings.Contains(vendor, np) || strings.Contains(title, np) {
				c.score += 3
				c.tags = append(c.tags, "Preferred brand")
				break
			}
		}
		if _, ok := pastVendors[vendor]; ok {
			c.score += 2
			c.tags = append(c.tags, "Previously purchased brand")
		}
		if _, ok := pastIDs[p.ID]; ok {
			c.score++
			c.tags = append(c.tags, "Previously purchased item")
		}

		out = append(out, c)
	}
	return out
}

func toBundleItem(c candidate) domain.BundleItem {
	return domain.BundleItem{
		ID:         c.product.ID,
		Title:      c.product.Title,
		Price:      c.product.Price,
		Category:   c.product.Category,
		Merchant:   c.product.Vendor,
		ReasonTags: dedupe(c.tags),
		Qty:        1,
	}
}

// dedupe убирает повторы, сохраняя порядок появления.
func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

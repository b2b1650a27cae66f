// Package catalog — статическая витрина: товары, истории покупок персон
// и mock checkout-флоу. Заменяет реальную интеграцию с магазином в demo-режиме
// и служит источником кандидатов для Bundle Selector'а.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/LaithAlz/me-agent/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

type Catalog struct {
	mu       sync.RWMutex
	products []domain.Product
	history  map[string][]domain.PurchaseHistoryItem
	carts    map[string]*domain.Cart
	cartSeq  int
}

func New() *Catalog {
	return &Catalog{
		products: defaultProducts(),
		history:  defaultHistory(),
		carts:    make(map[string]*domain.Cart),
	}
}

// SearchFilter — параметры поиска по витрине. Нулевые поля не фильтруют.
type SearchFilter struct {
	Query    string
	Category string
	Brand    string
	MinPrice *float64
	MaxPrice *float64
	Limit    int
}

func (c *Catalog) Search(f SearchFilter) []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	limit := f.Limit
	if limit < 1 || limit > 500 {
		limit = 200
	}

	out := make([]domain.Product, 0, limit)
	q := strings.ToLower(f.Query)
	brand := strings.ToLower(f.Brand)

	for _, p := range c.products {
		if q != "" && !matchesQuery(p, q) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if brand != "" && !strings.Contains(strings.ToLower(p.Vendor), brand) {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}

func matchesQuery(p domain.Product, q string) bool {
	if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Vendor), q) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Products возвращает копию всего каталога.
func (c *Catalog) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// History — история покупок персоны; неизвестная персона дает пустой список.
func (c *Catalog) History(personaID string) []domain.PurchaseHistoryItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := c.history[personaID]
	out := make([]domain.PurchaseHistoryItem, len(items))
	copy(out, items)
	return out
}

func (c *Catalog) CartCreate() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cartSeq++
	id := fmt.Sprintf("cart_%d", c.cartSeq)
	c.carts[id] = &domain.Cart{ID: id}
	return id
}

// CartLinesAdd добавляет строки в корзину и возвращает checkout URL.
func (c *Catalog) CartLinesAdd(cartID string, lines []domain.CartLine) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cart, ok := c.carts[cartID]
	if !ok {
		return "", ErrCartNotFound
	}

	cart.Lines = append(cart.Lines, lines...)
	cart.CheckoutURL = "https://checkout.shopify.com/mock/" + cart.ID
	return cart.CheckoutURL, nil
}

// Reservations — суммарно зарезервированные количества по id товара
// во всех открытых корзинах. Bundle Selector вычитает их из остатков.
func (c *Catalog) Reservations() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]int)
	for _, cart := range c.carts {
		for _, line := range cart.Lines {
			out[line.MerchandiseID] += line.Quantity
		}
	}
	return out
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/LaithAlz/me-agent/internal/catalog"
	"github.com/LaithAlz/me-agent/internal/domain"
)

// ShopifyHandler — mock-витрина: поиск, истории персон, checkout-флоу.
type ShopifyHandler struct {
	catalog *catalog.Catalog
}

func NewShopifyHandler(c *catalog.Catalog) *ShopifyHandler {
	return &ShopifyHandler{catalog: c}
}

// Search — фильтрующий поиск по каталогу.
// GET /api/shopify/products/search
func (h *ShopifyHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := catalog.SearchFilter{
		Query:    q.Get("query"),
		Category: q.Get("category"),
		Brand:    q.Get("brand"),
	}
	if raw := q.Get("min_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			respondError(w, http.StatusBadRequest, "min_price must be a non-negative number")
			return
		}
		f.MinPrice = &v
	}
	if raw := q.Get("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			respondError(w, http.StatusBadRequest, "max_price must be a non-negative number")
			return
		}
		f.MaxPrice = &v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 500 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		f.Limit = v
	}

	respondJSON(w, http.StatusOK, h.catalog.Search(f))
}

// History — история покупок персоны.
// GET /api/shopify/personas/{id}/history
func (h *ShopifyHandler) History(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.catalog.History(chi.URLParam(r, "id")))
}

// CartCreate — новая пустая корзина.
// POST /api/shopify/cart/create
func (h *ShopifyHandler) CartCreate(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"cartId": h.catalog.CartCreate()})
}

type cartLinesAddRequest struct {
	CartID string            `json:"cartId"`
	Lines  []domain.CartLine `json:"lines"`
}

// CartLinesAdd добавляет строки и возвращает checkout URL.
// POST /api/shopify/cart/lines/add
func (h *ShopifyHandler) CartLinesAdd(w http.ResponseWriter, r *http.Request) {
	var req cartLinesAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, line := range req.Lines {
		if line.Quantity < 1 {
			respondError(w, http.StatusBadRequest, "quantity must be at least 1")
			return
		}
	}

	url, err := h.catalog.CartLinesAdd(req.CartID, req.Lines)
	if err != nil {
		if errors.Is(err, catalog.ErrCartNotFound) {
			respondError(w, http.StatusNotFound, "Cart not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to add cart lines")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"checkoutUrl": url})
}

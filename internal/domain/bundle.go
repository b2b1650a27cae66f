package domain

// BundleItem — товар, отобранный Bundle Selector'ом в рекомендованную корзину.
type BundleItem struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Price      float64  `json:"price"`
	Category   string   `json:"category"`
	Merchant   string   `json:"merchant"`
	ReasonTags []string `json:"reasonTags"`
	Qty        int      `json:"qty"`
}

// BundleResult — итог отбора: позиции и кумулятивно округленный subtotal.
type BundleResult struct {
	Items    []BundleItem `json:"items"`
	Subtotal float64      `json:"subtotal"`
	Currency string       `json:"currency"`
}

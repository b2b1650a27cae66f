package domain

import "time"

// Product — позиция каталога магазина.
type Product struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Vendor        string   `json:"vendor"`
	Category      string   `json:"category"`
	Price         float64  `json:"price"`
	Tags          []string `json:"tags"`
	StockQuantity int      `json:"stockQuantity"`
}

// InventoryItem — компактная проекция товара, которая уходит в prompt
// reasoner'а и сохраняется как снимок инвентаря в сессии.
type InventoryItem struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Brand string   `json:"brand"`
	Tags  []string `json:"tags"`
}

// ToInventoryItem конвертирует товар в компактную проекцию.
func (p Product) ToInventoryItem() InventoryItem {
	return InventoryItem{
		Name:  p.Title,
		Price: p.Price,
		Brand: p.Vendor,
		Tags:  append([]string(nil), p.Tags...),
	}
}

// CartItem — позиция в существующей корзине пользователя.
type CartItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// PurchaseHistoryItem — запись истории покупок персоны.
type PurchaseHistoryItem struct {
	ProductID   string  `json:"productId"`
	Title       string  `json:"title"`
	Vendor      string  `json:"vendor"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	PurchasedAt string  `json:"purchasedAt"`
}

// CartLine — строка корзины витрины.
type CartLine struct {
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
}

// Cart — корзина витрины (mock checkout-флоу).
type Cart struct {
	ID          string     `json:"id"`
	Lines       []CartLine `json:"lines"`
	CheckoutURL string     `json:"checkoutUrl,omitempty"`
}

// Session — результат одного прогона рекомендации: корзина (сырой JSON
// решения), объяснение и снимок инвентаря, из которого она собиралась.
type Session struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	Cart              string          `json:"cart"`
	Explanation       string          `json:"explanation"`
	InventorySnapshot []InventoryItem `json:"inventorySnapshot"`
	Timestamp         time.Time       `json:"timestamp"`
}

// Correction — пользовательская правка рекомендованной корзины
// (kept/rejected + свободный комментарий), сырье для Feedback Learner.
type Correction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	SessionID     string    `json:"sessionId"`
	KeptItems     []string  `json:"keptItems"`
	RejectedItems []string  `json:"rejectedItems"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

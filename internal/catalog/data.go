package catalog

import "github.com/LaithAlz/me-agent/internal/domain"

// defaultProducts — демо-витрина. Категории совпадают с валидным набором
// политики, так что фильтрация Bundle Selector'а работает без маппинга.
func defaultProducts() []domain.Product {
	return []domain.Product{
		{ID: "gid://shopify/Product/3101", Title: "Apple Magic Trackpad", Vendor: "Apple", Category: "office", Price: 169.00, Tags: []string{"office", "minimal", "ecosystem", "ergonomic"}, StockQuantity: 5},
		{ID: "gid://shopify/Product/3102", Title: "Apple Magic Keyboard", Vendor: "Apple", Category: "office", Price: 99.00, Tags: []string{"office", "minimal", "ecosystem"}, StockQuantity: 5},
		{ID: "gid://shopify/Product/3103", Title: "Logitech MX Master 3S", Vendor: "Logitech", Category: "office", Price: 99.99, Tags: []string{"office", "ergonomic", "minimal"}, StockQuantity: 8},
		{ID: "gid://shopify/Product/3104", Title: "Logitech MX Keys Mini", Vendor: "Logitech", Category: "office", Price: 99.99, Tags: []string{"office", "minimal", "quiet"}, StockQuantity: 6},
		{ID: "gid://shopify/Product/3105", Title: "Logitech Lift Vertical Mouse", Vendor: "Logitech", Category: "office", Price: 69.99, Tags: []string{"office", "ergonomic"}, StockQuantity: 4},
		{ID: "gid://shopify/Product/3106", Title: "Keychron K2 (Non-RGB)", Vendor: "Keychron", Category: "office", Price: 89.99, Tags: []string{"office", "minimal"}, StockQuantity: 3},
		{ID: "gid://shopify/Product/3107", Title: "Generic RGB Mechanical Keyboard", Vendor: "Unknown", Category: "office", Price: 89.99, Tags: []string{"office", "RGB", "flashy", "unknown"}, StockQuantity: 10},
		{ID: "gid://shopify/Product/3110", Title: "Samsung Curved Gaming Monitor", Vendor: "Samsung", Category: "office", Price: 279.00, Tags: []string{"office", "monitor", "flashy"}, StockQuantity: 2},
		{ID: "gid://shopify/Product/3112", Title: "IKEA BEKANT Desk", Vendor: "IKEA", Category: "office", Price: 249.00, Tags: []string{"office", "minimal", "desk"}, StockQuantity: 2},
		{ID: "gid://shopify/Product/3115", Title: "Foot Rest Under Desk", Vendor: "Logitech", Category: "office", Price: 29.99, Tags: []string{"office", "ergonomic"}, StockQuantity: 7},
		{ID: "gid://shopify/Product/3116", Title: "Bose QuietComfort Headphones", Vendor: "Bose", Category: "office", Price: 249.00, Tags: []string{"office", "minimal", "comfort", "audio"}, StockQuantity: 4},
		{ID: "gid://shopify/Product/3122", Title: "Cable Management Kit", Vendor: "IKEA", Category: "office", Price: 24.99, Tags: []string{"office", "minimal", "cables"}, StockQuantity: 9},
		{ID: "gid://shopify/Product/3124", Title: "Webcam 1080p", Vendor: "Logitech", Category: "office", Price: 59.99, Tags: []string{"office", "calls"}, StockQuantity: 5},
		{ID: "gid://shopify/Product/3125", Title: "Anker 65W USB-C Charger", Vendor: "Anker", Category: "office", Price: 49.99, Tags: []string{"office", "power", "minimal"}, StockQuantity: 6},
		{ID: "gid://shopify/Product/3001", Title: "Wireless Headphones", Vendor: "TechVendor", Category: "electronics", Price: 99.99, Tags: []string{"wireless", "audio", "electronics"}, StockQuantity: 5},
		{ID: "gid://shopify/Product/3004", Title: "Bluetooth Speaker", Vendor: "SoundWave", Category: "electronics", Price: 79.99, Tags: []string{"audio", "portable", "bluetooth", "electronics"}, StockQuantity: 4},
		{ID: "gid://shopify/Product/3005", Title: "Mechanical Keyboard", Vendor: "KeyPro", Category: "electronics", Price: 129.99, Tags: []string{"keyboard", "mechanical", "gaming", "electronics"}, StockQuantity: 0},
		{ID: "gid://shopify/Product/3008", Title: "Smartwatch", Vendor: "FitTech", Category: "electronics", Price: 199.99, Tags: []string{"wearable", "fitness", "smart", "electronics"}, StockQuantity: 3},
		{ID: "gid://shopify/Product/3010", Title: "Webcam 1080p", Vendor: "VisionTech", Category: "electronics", Price: 59.99, Tags: []string{"camera", "streaming", "remote-work", "electronics"}, StockQuantity: 5},
		{ID: "gid://shopify/Product/3012", Title: "Aromatic Soy Candle", Vendor: "CozyCorner", Category: "home", Price: 18.50, Tags: []string{"home", "relaxation", "scented"}, StockQuantity: 12},
		{ID: "gid://shopify/Product/3014", Title: "Desk Plant (Succulent)", Vendor: "Plantify", Category: "home", Price: 15.99, Tags: []string{"plant", "decor", "workspace", "home"}, StockQuantity: 8},
		{ID: "gid://shopify/Product/3018", Title: "Vintage-Style Wall Clock", Vendor: "TimelessCo", Category: "home", Price: 67.00, Tags: []string{"decor", "timepiece", "vintage", "home"}, StockQuantity: 0},
		{ID: "gid://shopify/Product/3016", Title: "Yoga Mat", Vendor: "ZenMotion", Category: "sports", Price: 44.99, Tags: []string{"fitness", "wellness", "exercise", "sports"}, StockQuantity: 6},
		{ID: "gid://shopify/Product/3019", Title: "Cookbook: 30-Minute Meals", Vendor: "KitchenReads", Category: "books", Price: 34.95, Tags: []string{"cooking", "recipes", "healthy", "books"}, StockQuantity: 4},
		{ID: "gid://shopify/Product/3015", Title: "Instant Ramen Variety Pack", Vendor: "NoodleHouse", Category: "food", Price: 9.99, Tags: []string{"food", "convenience", "snacks"}, StockQuantity: 20},
		{ID: "gid://shopify/Product/3020", Title: "Noise-Reducing Sleep Mask", Vendor: "RestEasy", Category: "beauty", Price: 22.99, Tags: []string{"sleep", "wellness", "travel", "beauty"}, StockQuantity: 6},
		{ID: "gid://shopify/Product/3013", Title: "Minimalist Backpack", Vendor: "UrbanCarry", Category: "clothing", Price: 89.99, Tags: []string{"travel", "fashion", "storage", "clothing"}, StockQuantity: 0},
	}
}

func defaultHistory() map[string][]domain.PurchaseHistoryItem {
	return map[string][]domain.PurchaseHistoryItem{
		"alex": {
			{ProductID: "gid://shopify/Product/1101", Title: "Wireless Mouse", Vendor: "TechGear", Category: "electronics", Price: 29.99, PurchasedAt: "2024-10-02"},
			{ProductID: "gid://shopify/Product/1202", Title: "Denim Jeans", Vendor: "DenimCo", Category: "clothing", Price: 49.99, PurchasedAt: "2024-09-15"},
		},
		"jamie": {
			{ProductID: "gid://shopify/Product/1401", Title: "Yoga Mat", Vendor: "FitGear", Category: "sports", Price: 22.99, PurchasedAt: "2024-11-05"},
			{ProductID: "gid://shopify/Product/1302", Title: "Air Purifier", Vendor: "CleanAir", Category: "home", Price: 65.00, PurchasedAt: "2024-08-20"},
		},
	}
}

package domain

// CartLine is a read-only snapshot of one selected cart row at the moment
// checkout is invoked. UnitPrice was captured from the catalog when the line
// was last touched and is what the order charges.
type CartLine struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int32  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Selected  bool   `json:"selected"`
}

// Subtotal is unit price times quantity.
func (l CartLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// StockUnit is the catalog's view of one sellable unit, identified by
// (product, optional variant). Snapshot fields (name, image, sku) are copied
// onto order items at checkout.
type StockUnit struct {
	ProductID   int64  `json:"product_id"`
	VariantID   *int64 `json:"variant_id,omitempty"`
	Quantity    int32  `json:"quantity"`
	LowStockAt  int32  `json:"low_stock_threshold"`
	IsActive    bool   `json:"is_active"`
	Price       int64  `json:"price"`
	ProductName string `json:"product_name"`
	Image       string `json:"image"`
	VariantName string `json:"variant_name,omitempty"`
	SKU         string `json:"sku"`
}

// IsLowStock is informational only; it never blocks a sale.
func (s StockUnit) IsLowStock() bool {
	return s.Quantity > 0 && s.Quantity <= s.LowStockAt
}

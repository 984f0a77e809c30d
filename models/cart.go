package models

import (
	"github.com/shopspring/decimal"
)

type CartItem struct {
	ProductID string          `json:"product_id"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderContext is the per-checkout input to validation. It is never
// persisted by the promo engine.
type OrderContext struct {
	CustomerID string          `json:"customer_id"` // empty for anonymous checkout
	Items      []CartItem      `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"` // pre-discount
	Shipping   decimal.Decimal `json:"shipping"` // pre-discount
}

package models

import (
	"time"
)

// Redemption records one successful application of a promo code to a paid
// order. The (promo_code_id, order_id) unique index makes a retried commit
// for the same order detectable instead of double-counting.
type Redemption struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	PromoCodeID string    `json:"promo_code_id" gorm:"size:36;index;uniqueIndex:idx_redemptions_code_order"`
	CustomerID  string    `json:"customer_id" gorm:"size:64;index"` // empty for anonymous checkout
	OrderID     string    `json:"order_id" gorm:"size:64;uniqueIndex:idx_redemptions_code_order"`
	CreatedAt   time.Time `json:"created_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType tells how a promo code reduces the order total.
type DiscountType string

const (
	Percentage   DiscountType = "PERCENTAGE"    // percentage off the eligible items
	FixedAmount  DiscountType = "FIXED_AMOUNT"  // fixed currency amount off
	FreeShipping DiscountType = "FREE_SHIPPING" // shipping cost zeroed, no item discount
)

func (t DiscountType) Valid() bool {
	switch t {
	case Percentage, FixedAmount, FreeShipping:
		return true
	}
	return false
}

// UnlimitedUses marks a code with no global redemption cap.
const UnlimitedUses = -1

type PromoCode struct {
	ID            string           `json:"id" gorm:"primaryKey;size:36"`
	Code          string           `json:"code" gorm:"uniqueIndex;size:64"` // normalized uppercase, immutable
	Type          DiscountType     `json:"type" gorm:"size:32"`
	DiscountValue decimal.Decimal  `json:"discount_value" gorm:"type:decimal(10,2)"`
	MaxDiscount   *decimal.Decimal `json:"max_discount,omitempty" gorm:"type:decimal(10,2)"` // cap for PERCENTAGE
	MinPurchase   *decimal.Decimal `json:"min_purchase,omitempty" gorm:"type:decimal(10,2)"`
	FreeShip      bool             `json:"free_shipping"` // zeroes shipping regardless of Type

	MaxUses        int `json:"max_uses"`          // -1 = unlimited
	MaxUsesPerUser int `json:"max_uses_per_user"` // 0 = unlimited
	UsesCount      int `json:"uses_count"`

	ValidFrom *time.Time `json:"valid_from,omitempty"` // inclusive
	ValidTo   *time.Time `json:"valid_to,omitempty"`   // inclusive

	FirstPurchaseOnly bool   `json:"first_purchase_only"`
	IsActive          bool   `json:"is_active"`
	CreatedBy         string `json:"created_by" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Rules []PromoCodeRule `json:"rules" gorm:"foreignKey:PromoCodeID"`
}

// RuleValues collects the values of all rules of the given type.
func (p *PromoCode) RuleValues(t RuleType) map[string]bool {
	out := make(map[string]bool)
	for _, r := range p.Rules {
		if r.Type == t {
			out[r.Value] = true
		}
	}
	return out
}

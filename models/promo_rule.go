package models

import (
	"time"
)

// RuleType restricts which line items a promo code applies to.
type RuleType string

const (
	RuleCategory         RuleType = "CATEGORY"          // allow-list entry
	RuleExcludedCategory RuleType = "EXCLUDED_CATEGORY" // deny-list entry, wins over CATEGORY
	RuleExcludedProduct  RuleType = "EXCLUDED_PRODUCT"  // per-product deny-list entry
)

type PromoCodeRule struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	PromoCodeID string    `json:"promo_code_id" gorm:"index;size:36"`
	Type        RuleType  `json:"type" gorm:"size:50"`
	Value       string    `json:"value" gorm:"size:255"` // category name or product id
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

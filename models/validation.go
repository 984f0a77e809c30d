package models

import (
	"github.com/shopspring/decimal"
)

// RejectReason identifies why a promo code could not be applied. Every
// reason has a distinct remedy, so the checkout UI maps each to its own
// message instead of a generic "invalid code".
type RejectReason string

const (
	ReasonNotFound            RejectReason = "NOT_FOUND"
	ReasonInactive            RejectReason = "INACTIVE"
	ReasonNotYetValid         RejectReason = "NOT_YET_VALID"
	ReasonExpired             RejectReason = "EXPIRED"
	ReasonUsageLimitReached   RejectReason = "USAGE_LIMIT_REACHED"
	ReasonPerUserLimitReached RejectReason = "PER_USER_LIMIT_REACHED"
	ReasonNotFirstPurchase    RejectReason = "NOT_FIRST_PURCHASE"
	ReasonBelowMinimum        RejectReason = "BELOW_MINIMUM_PURCHASE"
	ReasonNoEligibleItems     RejectReason = "NO_ELIGIBLE_ITEMS"
)

type ValidationResult struct {
	Valid           bool            `json:"valid"`
	Code            string          `json:"code,omitempty"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	FreeShipping    bool            `json:"free_shipping"` // shipping cost forced to zero
	EligibleItemIDs []string        `json:"eligible_item_ids,omitempty"`
	Reason          RejectReason    `json:"reason,omitempty"`
	Message         string          `json:"message,omitempty"`
}

func Rejected(reason RejectReason, message string) ValidationResult {
	return ValidationResult{Valid: false, Reason: reason, Message: message}
}

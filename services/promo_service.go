package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"promo_service/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrCodeNotFound     = errors.New("promo code not found")
	ErrCodeExists       = errors.New("promo code already exists")
	ErrUsageCapExceeded = errors.New("promo code usage cap exceeded")
	ErrAlreadyRedeemed  = errors.New("promo code already redeemed for this order")
)

var oneHundred = decimal.NewFromInt(100)

// PromoService validates promo codes against an order context and owns
// their admin lifecycle. Validation never mutates state; Commit is the
// only mutating path and serializes at the database.
type PromoService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPromoService(db *gorm.DB) *PromoService {
	return &PromoService{db: db, now: time.Now}
}

// NormalizeCode trims and upper-cases a candidate code before lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *PromoService) Create(ctx context.Context, promo *models.PromoCode) error {
	promo.Code = NormalizeCode(promo.Code)
	if err := validatePromo(promo); err != nil {
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("code = ?", promo.Code).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrCodeExists
	}

	promo.ID = uuid.NewString()
	promo.UsesCount = 0
	promo.IsActive = true

	if err := s.db.WithContext(ctx).Create(promo).Error; err != nil {
		// unique index on code closes the check-then-insert race
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrCodeExists
		}
		return err
	}
	return nil
}

// Update replaces the mutable fields of an existing code. Code itself is
// immutable; setting is_active back to true here is the re-activation path.
func (s *PromoService) Update(ctx context.Context, code string, in *models.PromoCode) (*models.PromoCode, error) {
	existing, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	in.Code = existing.Code
	if err := validatePromo(in); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"type":                in.Type,
			"discount_value":      in.DiscountValue,
			"max_discount":        in.MaxDiscount,
			"min_purchase":        in.MinPurchase,
			"free_ship":           in.FreeShip,
			"max_uses":            in.MaxUses,
			"max_uses_per_user":   in.MaxUsesPerUser,
			"valid_from":          in.ValidFrom,
			"valid_to":            in.ValidTo,
			"first_purchase_only": in.FirstPurchaseOnly,
			"is_active":           in.IsActive,
		}
		if err := tx.Model(&models.PromoCode{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Where("promo_code_id = ?", existing.ID).Delete(&models.PromoCodeRule{}).Error; err != nil {
			return err
		}
		for i := range in.Rules {
			in.Rules[i].ID = 0
			in.Rules[i].PromoCodeID = existing.ID
		}
		if len(in.Rules) > 0 {
			if err := tx.Create(&in.Rules).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByCode(ctx, code)
}

func (s *PromoService) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := s.db.WithContext(ctx).Preload("Rules").
		Where("code = ?", NormalizeCode(code)).First(&promo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &promo, nil
}

func (s *PromoService) List(ctx context.Context) ([]models.PromoCode, error) {
	var promos []models.PromoCode
	err := s.db.WithContext(ctx).Preload("Rules").
		Order("created_at DESC").Find(&promos).Error
	return promos, err
}

// RedemptionCount reports how many times a code has been redeemed,
// optionally narrowed to one customer.
func (s *PromoService) RedemptionCount(ctx context.Context, promoID, customerID string) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Redemption{}).Where("promo_code_id = ?", promoID)
	if customerID != "" {
		q = q.Where("customer_id = ?", customerID)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

// Deactivate soft-deletes a code. Deactivating an already inactive code
// is a no-op, not an error.
func (s *PromoService) Deactivate(ctx context.Context, code string) error {
	promo, err := s.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if !promo.IsActive {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("id = ?", promo.ID).Update("is_active", false).Error
}

// Validate runs the rule checks in a fixed order so rejection reasons are
// deterministic, then computes the discount over the eligible items only.
// Business-rule rejections come back in the result; only store I/O faults
// return an error.
func (s *PromoService) Validate(ctx context.Context, code string, order models.OrderContext) (models.ValidationResult, error) {
	promo, err := s.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return models.Rejected(models.ReasonNotFound, "promo code not found"), nil
		}
		return models.ValidationResult{}, err
	}

	if !promo.IsActive {
		return models.Rejected(models.ReasonInactive, "promo code is no longer active"), nil
	}

	// both window bounds are inclusive
	now := s.now()
	if promo.ValidFrom != nil && now.Before(*promo.ValidFrom) {
		return models.Rejected(models.ReasonNotYetValid, "promo code is not valid yet"), nil
	}
	if promo.ValidTo != nil && now.After(*promo.ValidTo) {
		return models.Rejected(models.ReasonExpired, "promo code has expired"), nil
	}

	if promo.MaxUses >= 0 && promo.UsesCount >= promo.MaxUses {
		return models.Rejected(models.ReasonUsageLimitReached, "promo code has reached its usage limit"), nil
	}

	// per-user cap: skipped for anonymous checkout, never fails closed
	if promo.MaxUsesPerUser > 0 && order.CustomerID != "" {
		used, err := s.RedemptionCount(ctx, promo.ID, order.CustomerID)
		if err != nil {
			return models.ValidationResult{}, err
		}
		if used >= int64(promo.MaxUsesPerUser) {
			return models.Rejected(models.ReasonPerUserLimitReached, "you have already used this promo code the maximum number of times"), nil
		}
	}

	if promo.FirstPurchaseOnly && order.CustomerID != "" {
		completed, err := s.hasCompletedPriorOrder(ctx, order.CustomerID)
		if err != nil {
			return models.ValidationResult{}, err
		}
		if completed {
			return models.Rejected(models.ReasonNotFirstPurchase, "this promo code is only valid on your first purchase"), nil
		}
	}

	if promo.MinPurchase != nil && order.Subtotal.LessThan(*promo.MinPurchase) {
		missing := promo.MinPurchase.Sub(order.Subtotal)
		msg := fmt.Sprintf("add %s more to your order to use this code (minimum %s)",
			missing.StringFixed(2), promo.MinPurchase.StringFixed(2))
		return models.Rejected(models.ReasonBelowMinimum, msg), nil
	}

	eligibleIDs, base := partitionEligible(promo, order.Items)
	if len(eligibleIDs) == 0 {
		return models.Rejected(models.ReasonNoEligibleItems, "no items in the cart are eligible for this promo code"), nil
	}

	var discount decimal.Decimal
	switch promo.Type {
	case models.Percentage:
		// full precision until the final rounding step
		discount = base.Mul(promo.DiscountValue).Div(oneHundred)
		if promo.MaxDiscount != nil && discount.GreaterThan(*promo.MaxDiscount) {
			discount = *promo.MaxDiscount
		}
	case models.FixedAmount:
		// a fixed discount never exceeds the eligible base
		discount = promo.DiscountValue
		if discount.GreaterThan(base) {
			discount = base
		}
	case models.FreeShipping:
		discount = decimal.Zero
	}

	return models.ValidationResult{
		Valid:           true,
		Code:            promo.Code,
		DiscountAmount:  discount.Round(2),
		FreeShipping:    promo.FreeShip || promo.Type == models.FreeShipping,
		EligibleItemIDs: eligibleIDs,
	}, nil
}

// Commit consumes one redemption after an order is confirmed as paid. The
// guarded update and the redemption insert run in one transaction, so two
// concurrent commits near the cap cannot both win the last slot.
func (s *PromoService) Commit(ctx context.Context, code, customerID, orderID string) error {
	norm := NormalizeCode(code)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var promo models.PromoCode
		if err := tx.Where("code = ?", norm).First(&promo).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCodeNotFound
			}
			return err
		}

		res := tx.Model(&models.PromoCode{}).
			Where("id = ? AND (max_uses < 0 OR uses_count < max_uses)", promo.ID).
			UpdateColumn("uses_count", gorm.Expr("uses_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUsageCapExceeded
		}

		redemption := models.Redemption{
			ID:          uuid.NewString(),
			PromoCodeID: promo.ID,
			CustomerID:  customerID,
			OrderID:     orderID,
		}
		if err := tx.Create(&redemption).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyRedeemed
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"code":     norm,
		"order_id": orderID,
	}).Info("promo code redeemed")
	return nil
}

func (s *PromoService) hasCompletedPriorOrder(ctx context.Context, customerID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("customer_id = ? AND status IN ?", customerID, models.CompletedOrderStatuses).
		Count(&count).Error
	return count > 0, err
}

// partitionEligible splits the cart per the restriction rules. Exclusions
// are evaluated before the allow-list, so deny wins when a category sits
// in both lists. Ineligible items never contribute to the discount base.
func partitionEligible(promo *models.PromoCode, items []models.CartItem) ([]string, decimal.Decimal) {
	allowed := promo.RuleValues(models.RuleCategory)
	deniedCats := promo.RuleValues(models.RuleExcludedCategory)
	deniedProds := promo.RuleValues(models.RuleExcludedProduct)

	var ids []string
	base := decimal.Zero
	for _, item := range items {
		if deniedProds[item.ProductID] {
			continue
		}
		if deniedCats[item.Category] {
			continue
		}
		if len(allowed) > 0 && !allowed[item.Category] {
			continue
		}
		ids = append(ids, item.ProductID)
		base = base.Add(item.LineTotal())
	}
	return ids, base
}

func validatePromo(promo *models.PromoCode) error {
	if promo.Code == "" {
		return errors.New("code is required")
	}
	if !promo.Type.Valid() {
		return fmt.Errorf("unknown discount type %q", promo.Type)
	}
	switch promo.Type {
	case models.Percentage:
		if promo.DiscountValue.IsNegative() || promo.DiscountValue.GreaterThan(oneHundred) {
			return errors.New("percentage discount value must be between 0 and 100")
		}
	case models.FixedAmount:
		if !promo.DiscountValue.IsPositive() {
			return errors.New("fixed amount discount value must be positive")
		}
	}
	if promo.ValidFrom != nil && promo.ValidTo != nil && promo.ValidFrom.After(*promo.ValidTo) {
		return errors.New("valid_from cannot be after valid_to")
	}
	if promo.MaxUses < models.UnlimitedUses {
		return errors.New("max_uses must be -1 (unlimited) or non-negative")
	}
	if promo.MaxUsesPerUser < 0 {
		return errors.New("max_uses_per_user cannot be negative")
	}
	for _, r := range promo.Rules {
		switch r.Type {
		case models.RuleCategory, models.RuleExcludedCategory, models.RuleExcludedProduct:
		default:
			return fmt.Errorf("unknown rule type %q", r.Type)
		}
		if r.Value == "" {
			return errors.New("rule value is required")
		}
	}
	return nil
}

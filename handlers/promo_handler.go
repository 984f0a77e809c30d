package handlers

import (
	"errors"
	"net/http"
	"time"

	"promo_service/models"
	"promo_service/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type PromoHandler struct {
	promoService *services.PromoService
}

func NewPromoHandler(promoService *services.PromoService) *PromoHandler {
	return &PromoHandler{promoService: promoService}
}

// --- Request / Response DTOs ---

type PromoCodeRequest struct {
	Code               string              `json:"code" binding:"required"`
	Type               models.DiscountType `json:"type" binding:"required"`
	DiscountValue      decimal.Decimal     `json:"discount_value"`
	MaxDiscount        *decimal.Decimal    `json:"max_discount,omitempty"`
	MinPurchase        *decimal.Decimal    `json:"min_purchase,omitempty"`
	FreeShipping       bool                `json:"free_shipping"`
	MaxUses            *int                `json:"max_uses,omitempty"` // omitted = unlimited
	MaxUsesPerUser     int                 `json:"max_uses_per_user"`
	ValidFrom          *time.Time          `json:"valid_from,omitempty"`
	ValidTo            *time.Time          `json:"valid_to,omitempty"`
	FirstPurchaseOnly  bool                `json:"first_purchase_only"`
	IsActive           *bool               `json:"is_active,omitempty"`
	Categories         []string            `json:"categories,omitempty"`
	ExcludedCategories []string            `json:"excluded_categories,omitempty"`
	ExcludedProducts   []string            `json:"excluded_products,omitempty"`
}

func (r *PromoCodeRequest) toModel() *models.PromoCode {
	promo := &models.PromoCode{
		Code:              r.Code,
		Type:              r.Type,
		DiscountValue:     r.DiscountValue,
		MaxDiscount:       r.MaxDiscount,
		MinPurchase:       r.MinPurchase,
		FreeShip:          r.FreeShipping,
		MaxUses:           models.UnlimitedUses,
		MaxUsesPerUser:    r.MaxUsesPerUser,
		ValidFrom:         r.ValidFrom,
		ValidTo:           r.ValidTo,
		FirstPurchaseOnly: r.FirstPurchaseOnly,
		IsActive:          true,
	}
	if r.MaxUses != nil {
		promo.MaxUses = *r.MaxUses
	}
	if r.IsActive != nil {
		promo.IsActive = *r.IsActive
	}
	for _, c := range r.Categories {
		promo.Rules = append(promo.Rules, models.PromoCodeRule{Type: models.RuleCategory, Value: c})
	}
	for _, c := range r.ExcludedCategories {
		promo.Rules = append(promo.Rules, models.PromoCodeRule{Type: models.RuleExcludedCategory, Value: c})
	}
	for _, p := range r.ExcludedProducts {
		promo.Rules = append(promo.Rules, models.PromoCodeRule{Type: models.RuleExcludedProduct, Value: p})
	}
	return promo
}

type ApplyPromoRequest struct {
	Code       string            `json:"code" binding:"required"`
	CustomerID string            `json:"customer_id"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
	Shipping   decimal.Decimal   `json:"shipping"`
	Items      []models.CartItem `json:"items"`
}

type ApplyPromoResponse struct {
	models.ValidationResult
	Shipping decimal.Decimal `json:"shipping"`
}

type CommitPromoRequest struct {
	Code       string `json:"code" binding:"required"`
	CustomerID string `json:"customer_id"`
	OrderID    string `json:"order_id" binding:"required"`
}

type PromoDetailsResponse struct {
	models.PromoCode
	Redemptions int64 `json:"redemptions"`
}

// --- Admin handlers ---

func (h *PromoHandler) ListPromoCodes(c *gin.Context) {
	promos, err := h.promoService.List(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("ListPromoCodes: failed to list promo codes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list promo codes"})
		return
	}
	c.JSON(http.StatusOK, promos)
}

func (h *PromoHandler) CreatePromoCode(c *gin.Context) {
	var req PromoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("CreatePromoCode: invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	promo := req.toModel()
	promo.CreatedBy = c.GetString(identityKey)

	if err := h.promoService.Create(c.Request.Context(), promo); err != nil {
		if errors.Is(err, services.ErrCodeExists) {
			logrus.WithField("code", promo.Code).Warn("CreatePromoCode: code already exists")
			c.JSON(http.StatusConflict, gin.H{"error": "promo code already exists"})
			return
		}
		logrus.WithError(err).Warn("CreatePromoCode: rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, promo)
}

func (h *PromoHandler) GetPromoCode(c *gin.Context) {
	code := c.Param("code")

	promo, err := h.promoService.GetByCode(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, services.ErrCodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "promo code not found"})
			return
		}
		logrus.WithField("code", code).WithError(err).Error("GetPromoCode: lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get promo code"})
		return
	}

	redemptions, err := h.promoService.RedemptionCount(c.Request.Context(), promo.ID, "")
	if err != nil {
		logrus.WithField("code", code).WithError(err).Error("GetPromoCode: redemption count failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get promo code"})
		return
	}

	c.JSON(http.StatusOK, PromoDetailsResponse{PromoCode: *promo, Redemptions: redemptions})
}

func (h *PromoHandler) UpdatePromoCode(c *gin.Context) {
	code := c.Param("code")

	var req PromoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("UpdatePromoCode: invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	promo, err := h.promoService.Update(c.Request.Context(), code, req.toModel())
	if err != nil {
		if errors.Is(err, services.ErrCodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "promo code not found"})
			return
		}
		logrus.WithField("code", code).WithError(err).Warn("UpdatePromoCode: rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, promo)
}

func (h *PromoHandler) DeactivatePromoCode(c *gin.Context) {
	code := c.Param("code")

	if err := h.promoService.Deactivate(c.Request.Context(), code); err != nil {
		if errors.Is(err, services.ErrCodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "promo code not found"})
			return
		}
		logrus.WithField("code", code).WithError(err).Error("DeactivatePromoCode: failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate promo code"})
		return
	}

	c.Status(http.StatusNoContent)
}

// --- Checkout handlers ---

// ApplyPromoCode validates a code against the current order. A rejected
// code is a normal outcome, not a transport error, so it comes back as
// 200 with valid:false and a reason the UI can act on.
func (h *PromoHandler) ApplyPromoCode(c *gin.Context) {
	var req ApplyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("ApplyPromoCode: invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Subtotal.IsNegative() || req.Shipping.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subtotal and shipping must be non-negative"})
		return
	}

	order := models.OrderContext{
		CustomerID: req.CustomerID,
		Items:      req.Items,
		Subtotal:   req.Subtotal,
		Shipping:   req.Shipping,
	}

	result, err := h.promoService.Validate(c.Request.Context(), req.Code, order)
	if err != nil {
		logrus.WithField("code", req.Code).WithError(err).Error("ApplyPromoCode: validation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate promo code"})
		return
	}

	shipping := req.Shipping
	if result.FreeShipping {
		shipping = decimal.Zero
	}
	c.JSON(http.StatusOK, ApplyPromoResponse{ValidationResult: result, Shipping: shipping})
}

// CommitPromoCode records a redemption once the order is confirmed as
// paid. The caller gates this on the order state transition.
func (h *PromoHandler) CommitPromoCode(c *gin.Context) {
	var req CommitPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("CommitPromoCode: invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	err := h.promoService.Commit(c.Request.Context(), req.Code, req.CustomerID, req.OrderID)
	if err != nil {
		log := logrus.WithFields(logrus.Fields{
			"code":     req.Code,
			"order_id": req.OrderID,
		})
		switch {
		case errors.Is(err, services.ErrCodeNotFound):
			log.Warn("CommitPromoCode: promo code not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "promo code not found"})
		case errors.Is(err, services.ErrUsageCapExceeded):
			log.Warn("CommitPromoCode: usage cap exceeded")
			c.JSON(http.StatusConflict, gin.H{"error": "promo code usage cap exceeded"})
		case errors.Is(err, services.ErrAlreadyRedeemed):
			log.Warn("CommitPromoCode: already redeemed for this order")
			c.JSON(http.StatusConflict, gin.H{"error": "promo code already redeemed for this order"})
		default:
			log.WithError(err).Error("CommitPromoCode: failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to commit promo code"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "promo code redeemed", "code": services.NormalizeCode(req.Code)})
}

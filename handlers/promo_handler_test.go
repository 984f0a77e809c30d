package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"promo_service/models"
	"promo_service/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const adminEmail = "admin@beleza.example"

func setupRouter(t *testing.T) (*gin.Engine, *services.PromoService) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.PromoCode{},
		&models.PromoCodeRule{},
		&models.Redemption{},
		&models.Order{},
	); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	promoService := services.NewPromoService(db)
	promoHandler := NewPromoHandler(promoService)

	router := gin.New()
	api := router.Group("/api")
	admin := api.Group("/promo", AdminOnly([]string{adminEmail}))
	{
		admin.GET("", promoHandler.ListPromoCodes)
		admin.POST("", promoHandler.CreatePromoCode)
		admin.GET("/:code", promoHandler.GetPromoCode)
		admin.PUT("/:code", promoHandler.UpdatePromoCode)
		admin.DELETE("/:code", promoHandler.DeactivatePromoCode)
	}
	api.POST("/promo/apply", promoHandler.ApplyPromoCode)
	api.POST("/promo/commit", promoHandler.CommitPromoCode)

	return router, promoService
}

func doJSON(router *gin.Engine, method, path string, body interface{}, identity string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if identity != "" {
		req.Header.Set(IdentityHeader, identity)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedCode(t *testing.T, svc *services.PromoService, promo *models.PromoCode) {
	t.Helper()
	if err := svc.Create(context.Background(), promo); err != nil {
		t.Fatalf("Failed to seed promo code: %v", err)
	}
}

func TestAdminGate(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/api/promo", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, http.MethodGet, "/api/promo", nil, "shopper@example.com")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, http.MethodGet, "/api/promo", nil, adminEmail)
	assert.Equal(t, http.StatusOK, w.Code)

	// identity comparison is case-insensitive
	w = doJSON(router, http.MethodGet, "/api/promo", nil, "Admin@Beleza.Example")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreatePromoCodeEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	body := PromoCodeRequest{
		Code:          "bemvindo10",
		Type:          models.Percentage,
		DiscountValue: decimal.NewFromInt(10),
		Categories:    []string{"hair"},
	}

	w := doJSON(router, http.MethodPost, "/api/promo", body, adminEmail)
	assert.Equal(t, http.StatusCreated, w.Code)

	var created models.PromoCode
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "BEMVINDO10", created.Code)
	assert.Equal(t, models.UnlimitedUses, created.MaxUses)
	assert.Equal(t, adminEmail, created.CreatedBy)
	assert.Len(t, created.Rules, 1)

	w = doJSON(router, http.MethodPost, "/api/promo", body, adminEmail)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(router, http.MethodPost, "/api/promo", gin.H{"type": "PERCENTAGE"}, adminEmail)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAndDeactivateEndpoints(t *testing.T) {
	router, svc := setupRouter(t)

	seedCode(t, svc, &models.PromoCode{
		Code: "DETAILS", Type: models.FixedAmount,
		DiscountValue: decimal.NewFromInt(5), MaxUses: models.UnlimitedUses,
	})
	assert.NoError(t, svc.Commit(context.Background(), "DETAILS", "cust-1", "order-1"))

	w := doJSON(router, http.MethodGet, "/api/promo/DETAILS", nil, adminEmail)
	assert.Equal(t, http.StatusOK, w.Code)

	var details PromoDetailsResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &details))
	assert.Equal(t, "DETAILS", details.Code)
	assert.Equal(t, int64(1), details.Redemptions)
	assert.Equal(t, 1, details.UsesCount)

	w = doJSON(router, http.MethodGet, "/api/promo/MISSING", nil, adminEmail)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/promo/DETAILS", nil, adminEmail)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/promo/MISSING", nil, adminEmail)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApplyEndpoint(t *testing.T) {
	router, svc := setupRouter(t)

	maxDiscount := decimal.NewFromInt(50)
	seedCode(t, svc, &models.PromoCode{
		Code: "BEMVINDO10", Type: models.Percentage,
		DiscountValue: decimal.NewFromInt(10), MaxDiscount: &maxDiscount,
		MaxUses: models.UnlimitedUses,
	})

	body := ApplyPromoRequest{
		Code:       "bemvindo10",
		CustomerID: "cust-1",
		Subtotal:   decimal.NewFromInt(600),
		Shipping:   decimal.NewFromInt(25),
		Items: []models.CartItem{
			{ProductID: "p1", Category: "hair", UnitPrice: decimal.NewFromInt(600), Quantity: 1},
		},
	}

	w := doJSON(router, http.MethodPost, "/api/promo/apply", body, "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp ApplyPromoResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	assert.True(t, resp.DiscountAmount.Equal(decimal.NewFromInt(50)), "got %s", resp.DiscountAmount)
	assert.True(t, resp.Shipping.Equal(decimal.NewFromInt(25))) // shipping untouched without free_shipping

	// a rejected code is a 200 with a structured reason, not an error status
	body.Code = "NOSUCHCODE"
	w = doJSON(router, http.MethodPost, "/api/promo/apply", body, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	assert.Equal(t, models.ReasonNotFound, resp.Reason)

	w = doJSON(router, http.MethodPost, "/api/promo/apply", gin.H{"customer_id": "cust-1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplyEndpointFreeShipping(t *testing.T) {
	router, svc := setupRouter(t)

	seedCode(t, svc, &models.PromoCode{
		Code: "FRETEGRATIS", Type: models.FreeShipping, FreeShip: true,
		MaxUses: models.UnlimitedUses,
	})

	body := ApplyPromoRequest{
		Code:     "FRETEGRATIS",
		Subtotal: decimal.NewFromInt(80),
		Shipping: decimal.NewFromInt(25),
		Items: []models.CartItem{
			{ProductID: "p1", Category: "hair", UnitPrice: decimal.NewFromInt(80), Quantity: 1},
		},
	}

	w := doJSON(router, http.MethodPost, "/api/promo/apply", body, "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp ApplyPromoResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	assert.True(t, resp.DiscountAmount.IsZero())
	assert.True(t, resp.FreeShipping)
	assert.True(t, resp.Shipping.IsZero())
}

func TestCommitEndpoint(t *testing.T) {
	router, svc := setupRouter(t)

	seedCode(t, svc, &models.PromoCode{
		Code: "ONESLOT", Type: models.FixedAmount,
		DiscountValue: decimal.NewFromInt(5), MaxUses: 1,
	})

	body := CommitPromoRequest{Code: "ONESLOT", CustomerID: "cust-1", OrderID: "order-1"}
	w := doJSON(router, http.MethodPost, "/api/promo/commit", body, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// same order again: duplicate, not a second redemption
	w = doJSON(router, http.MethodPost, "/api/promo/commit", body, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	body.OrderID = "order-2"
	w = doJSON(router, http.MethodPost, "/api/promo/commit", body, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	body.Code = "GHOST"
	w = doJSON(router, http.MethodPost, "/api/promo/commit", body, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

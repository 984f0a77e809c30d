package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// CompletedOrderStatuses are the statuses that count as a completed
// purchase for first-purchase-only codes.
var CompletedOrderStatuses = []OrderStatus{OrderPaid, OrderShipped, OrderDelivered}

// Order is the slice of the store's order record the promo engine reads.
type Order struct {
	ID         string          `json:"id" gorm:"primaryKey;size:36"`
	CustomerID string          `json:"customer_id" gorm:"size:64;index"`
	Status     OrderStatus     `json:"status" gorm:"size:32"`
	Total      decimal.Decimal `json:"total" gorm:"type:decimal(10,2)"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

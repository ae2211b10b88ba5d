package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses. CANCELLED and DELIVERED are terminal.
const (
	OrderStatusPlaced    = "PLACED"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusDelivered = "DELIVERED"
)

// Order is the settlement aggregate. Orders are never deleted and the order
// number is immutable once assigned; items are immutable once stock has been
// reserved against them.
type Order struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`
	CustomerID  uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`

	CustomerName string `gorm:"type:varchar(128);not null" json:"customer_name"`
	Phone        string `gorm:"type:varchar(20);not null" json:"phone"`
	Email        string `gorm:"type:varchar(256)" json:"email"`
	AddressLine  string `gorm:"type:varchar(512);not null" json:"address_line"`
	City         string `gorm:"type:varchar(128);not null" json:"city"`
	State        string `gorm:"type:varchar(128);not null" json:"state"`
	Pincode      string `gorm:"type:varchar(10);not null" json:"pincode"`

	Subtotal      float64 `gorm:"not null" json:"subtotal"`
	TotalDiscount float64 `gorm:"not null" json:"total_discount"`
	TotalTax      float64 `gorm:"not null" json:"total_tax"`
	NetAmount     float64 `gorm:"not null" json:"net_amount"`

	Status      string     `gorm:"type:varchar(20);not null;default:'PLACED'" json:"status"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem is one priced line of an order. CGST and SGST carry the split tax
// amounts; Amount is the final line amount (taxable + taxes).
type OrderItem struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID    uuid.UUID  `gorm:"type:uuid;not null" json:"product_id"`
	ProductName  string     `gorm:"type:varchar(256)" json:"product_name"`
	Quantity     int        `gorm:"not null" json:"quantity"`
	FreeQuantity int        `gorm:"not null;default:0" json:"free_quantity"`
	Batch        string     `gorm:"type:varchar(64)" json:"batch"`
	Expiry       *time.Time `json:"expiry,omitempty"`
	Rate         float64    `gorm:"not null" json:"rate"`
	Discount     float64    `gorm:"not null;default:0" json:"discount"`
	CGST         float64    `gorm:"not null;default:0" json:"cgst"`
	SGST         float64    `gorm:"not null;default:0" json:"sgst"`
	Amount       float64    `gorm:"not null" json:"amount"`
}

// CreateOrderRequest is the payload for POST /orders.
type CreateOrderRequest struct {
	CustomerName string                   `json:"customer_name" binding:"required"`
	Phone        string                   `json:"phone" binding:"required"`
	Email        string                   `json:"email"`
	AddressLine  string                   `json:"address_line" binding:"required"`
	City         string                   `json:"city" binding:"required"`
	State        string                   `json:"state" binding:"required"`
	Pincode      string                   `json:"pincode" binding:"required"`
	Items        []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CreateOrderItemRequest is one requested line. The optional overrides take
// precedence over catalog-derived values when present.
type CreateOrderItemRequest struct {
	ProductID    string   `json:"product_id" binding:"required"`
	Quantity     int      `json:"quantity" binding:"required,gt=0"`
	FreeQuantity int      `json:"free_quantity"`
	Rate         *float64 `json:"rate"`
	Discount     float64  `json:"discount"`
	CGST         *float64 `json:"cgst"`
	SGST         *float64 `json:"sgst"`
	Amount       *float64 `json:"amount"`
}

// UpdateOrderStatusRequest is the payload for PATCH /orders/:id/status.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

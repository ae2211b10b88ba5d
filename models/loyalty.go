package models

import (
	"time"

	"github.com/google/uuid"
)

// Loyalty crediting sources. An order can legitimately hold one entry per
// source: a placement bonus and a capture bonus are different events.
const (
	LoyaltySourceOrderPlaced     = "order_placed"
	LoyaltySourcePaymentCaptured = "payment_captured"
)

// LoyaltyTransaction is one ledger entry. The composite unique index on
// (order_id, source) is the exactly-once gate for crediting.
type LoyaltyTransaction struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_loyalty_order_source" json:"order_id"`
	Source     string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_loyalty_order_source" json:"source"`
	Points     int       `gorm:"not null" json:"points"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippingActionLog is one append-only audit row per outbound carrier call or
// inbound carrier webhook. Request and Response are stored sanitized.
type ShippingActionLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Provider   string     `gorm:"type:varchar(32);not null;index" json:"provider"`
	Action     string     `gorm:"type:varchar(64);not null" json:"action"`
	OrderID    *uuid.UUID `gorm:"type:uuid;index" json:"order_id,omitempty"`
	Request    string     `gorm:"type:jsonb" json:"request"`
	Response   string     `gorm:"type:jsonb" json:"response"`
	HTTPStatus int        `json:"http_status"`
	Error      string     `gorm:"type:text" json:"error"`
	Attempt    int        `gorm:"not null;default:1" json:"attempt"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

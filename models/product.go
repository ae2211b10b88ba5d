package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the local projection of the catalog used for pricing and stock.
// ListPrice is the MRP; ReferenceRate is the distributor reference price (PTR)
// preferred over MRP when pricing a line item.
type Product struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SKU           string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"sku"`
	Name          string         `gorm:"type:varchar(256);not null" json:"name"`
	Manufacturer  string         `gorm:"type:varchar(256)" json:"manufacturer"`
	ListPrice     float64        `gorm:"not null" json:"list_price"`
	ReferenceRate float64        `json:"reference_rate"`
	GSTRate       float64        `gorm:"not null;default:0" json:"gst_rate"` // percent, e.g. 5 or 12
	Stock         int            `gorm:"not null;default:0" json:"stock"`
	Batch         string         `gorm:"type:varchar(64)" json:"batch"`
	Expiry        *time.Time     `json:"expiry,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

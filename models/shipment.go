package models

import (
	"time"

	"github.com/google/uuid"
)

// Internal shipment statuses. Every carrier status string normalizes into one
// of these; a Shipment never holds a raw carrier string.
const (
	ShipmentStatusCreated     = "CREATED"
	ShipmentStatusAWBAssigned = "AWB_ASSIGNED"
	ShipmentStatusReadyToPick = "READY_TO_PICK"
	ShipmentStatusPicked      = "PICKED"
	ShipmentStatusInTransit   = "IN_TRANSIT"
	ShipmentStatusDelivered   = "DELIVERED"
	ShipmentStatusRTO         = "RTO"
	ShipmentStatusCancelled   = "CANCELLED"
	ShipmentStatusFailed      = "FAILED"
)

// Shipment is the one-per-order carrier record. The unique index on order_id
// plus upsert semantics make forced re-creation replace rather than duplicate.
type Shipment struct {
	ID                 uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID            uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"order_id"`
	Provider           string    `gorm:"type:varchar(32);not null" json:"provider"`
	ProviderOrderID    string    `gorm:"type:varchar(64)" json:"provider_order_id"`
	ProviderShipmentID string    `gorm:"type:varchar(64)" json:"provider_shipment_id"`
	AWB                *string   `gorm:"type:varchar(64);index" json:"awb,omitempty"`
	CourierName        string    `gorm:"type:varchar(128)" json:"courier_name"`
	Status             string    `gorm:"type:varchar(20);not null;default:'CREATED'" json:"status"`
	TrackingPayload    *string   `gorm:"type:jsonb" json:"-"`
	RawResponse        *string   `gorm:"type:jsonb" json:"-"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CreateShipmentRequest is the payload for POST /shipments/:orderId/create.
type CreateShipmentRequest struct {
	Provider string `json:"provider"`
	Force    bool   `json:"force"`
}

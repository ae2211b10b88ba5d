package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent records one admitted inbound webhook. EventKey is the
// provider-qualified external event id and is unique: a second event with the
// same key is recognized and short-circuited. Rows are append-only.
type WebhookEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Provider    string    `gorm:"type:varchar(32);not null;index" json:"provider"`
	EventKey    string    `gorm:"type:varchar(160);uniqueIndex;not null" json:"event_key"`
	EventID     string    `gorm:"type:varchar(128);not null" json:"event_id"`
	Payload     string    `gorm:"type:jsonb" json:"-"`
	Status      string    `gorm:"type:varchar(20);not null;default:'RECEIVED'" json:"status"`
	ProcessedAt time.Time `gorm:"not null" json:"processed_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses. CAPTURED is terminal and absorbing: re-entry attempts are
// no-ops, never errors.
const (
	PaymentStatusCreated  = "CREATED"
	PaymentStatusCaptured = "CAPTURED"
	PaymentStatusFailed   = "FAILED"
)

// Payment is the one-per-order gateway intent record. Amount is held in minor
// currency units (paise) because that is what the gateway settles in.
type Payment struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID           uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"order_id"`
	Provider          string     `gorm:"type:varchar(32);not null;default:'razorpay'" json:"provider"`
	ProviderOrderID   string     `gorm:"type:varchar(64);index;not null" json:"provider_order_id"`
	ProviderPaymentID *string    `gorm:"type:varchar(64);uniqueIndex" json:"provider_payment_id,omitempty"`
	Signature         *string    `gorm:"type:varchar(128)" json:"-"`
	Amount            int64      `gorm:"not null" json:"amount"` // paise
	Currency          string     `gorm:"type:varchar(10);not null;default:'INR'" json:"currency"`
	Status            string     `gorm:"type:varchar(20);not null;default:'CREATED'" json:"status"`
	RawPayload        *string    `gorm:"type:jsonb" json:"-"` // provider payload, for audit
	CapturedAt        *time.Time `json:"captured_at,omitempty"`
	FailedAt          *time.Time `json:"failed_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// CreateIntentRequest is the payload for POST /payments/intent.
type CreateIntentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// IntentResponse is returned to the client so it can open the gateway checkout.
type IntentResponse struct {
	KeyID           string `json:"key_id"`
	ProviderOrderID string `json:"provider_order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// VerifyPaymentRequest is the client-submitted proof of payment.
type VerifyPaymentRequest struct {
	ProviderOrderID   string `json:"provider_order_id" binding:"required"`
	ProviderPaymentID string `json:"provider_payment_id" binding:"required"`
	Signature         string `json:"signature" binding:"required"`
	OrderID           string `json:"order_id" binding:"required"`
}

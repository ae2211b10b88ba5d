package models

import "time"

// PaymentCapturedEvent is published to SNS after a payment reaches CAPTURED.
type PaymentCapturedEvent struct {
	EventType string    `json:"event_type"`
	OrderID   string    `json:"order_id"`
	PaymentID string    `json:"payment_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
}

// ShipmentEvent is published to SNS when a shipment is created or its
// normalized status changes.
type ShipmentEvent struct {
	EventType  string    `json:"event_type"`
	ShipmentID string    `json:"shipment_id"`
	OrderID    string    `json:"order_id"`
	Provider   string    `json:"provider"`
	AWB        string    `json:"awb,omitempty"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

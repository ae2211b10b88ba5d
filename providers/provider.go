package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Provider names accepted by the shipment routes and webhooks.
const (
	ProviderNimbusPost = "nimbuspost"
	ProviderShiprocket = "shiprocket"
)

// ShipmentItem is one line of the normalized carrier payload. SellingPrice is
// the per-unit price derived from the order line amount.
type ShipmentItem struct {
	Name         string
	SKU          string
	Quantity     int
	SellingPrice float64
}

// ShipmentRequest is the carrier-neutral creation payload built from an order.
type ShipmentRequest struct {
	OrderID     uuid.UUID
	OrderNumber string

	CustomerName string
	Phone        string
	Email        string
	AddressLine  string
	City         string
	State        string
	Pincode      string

	Items []ShipmentItem

	// Parcel placeholders; real weights come from warehouse config.
	WeightKg float64
	LengthCm float64
	WidthCm  float64
	HeightCm float64

	CODAmount float64 // 0 for prepaid
}

// ShipmentResult is what a create or assign call yields. AWB may be empty
// until assignment succeeds.
type ShipmentResult struct {
	ProviderOrderID    string
	ProviderShipmentID string
	AWB                string
	CourierName        string
	Raw                json.RawMessage
}

// TrackResult carries the carrier's raw status string; callers normalize it
// through MapCarrierStatus.
type TrackResult struct {
	AWB           string
	CarrierStatus string
	Raw           json.RawMessage
}

// ShippingProvider is the uniform capability set over carrier integrations.
type ShippingProvider interface {
	Name() string

	// Authenticate ensures a valid credential, refreshing the cached token
	// lazily when expired.
	Authenticate(ctx context.Context) error

	// CreateOrder registers the shipment order with the carrier.
	CreateOrder(ctx context.Context, req *ShipmentRequest) (*ShipmentResult, error)

	// AssignAWB requests a waybill for a previously created provider order.
	// This is also the "generate AWB" operation; the two names refer to the
	// same carrier call.
	AssignAWB(ctx context.Context, prev *ShipmentResult) (*ShipmentResult, error)

	// Track fetches the carrier's current view of the shipment.
	Track(ctx context.Context, awb string) (*TrackResult, error)

	// Cancel requests cancellation of the shipment with the carrier.
	Cancel(ctx context.Context, awb string) error
}

// UpstreamError reports a carrier call that failed at the transport level or
// returned a non-success response.
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream error (status %d): %s", e.Provider, e.Status, e.Message)
}

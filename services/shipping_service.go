package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"fulfillment-service/events"
	"fulfillment-service/models"
	"fulfillment-service/providers"
	"fulfillment-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Parcel defaults used until warehouse-measured dimensions are available.
const (
	defaultParcelWeightKg = 0.5
	defaultParcelSideCm   = 10
)

// ShippingService orchestrates carrier calls and owns the shipment lifecycle.
type ShippingService struct {
	providers       map[string]providers.ShippingProvider
	defaultProvider string

	shipments repository.ShipmentRepository
	orders    repository.OrderRepository
	payments  repository.PaymentRepository
	webhooks  repository.WebhookEventRepository
	actions   *providers.ActionLogger
	publisher *events.Publisher
	logger    *zap.Logger
}

func NewShippingService(
	carriers []providers.ShippingProvider,
	defaultProvider string,
	shipments repository.ShipmentRepository,
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	webhooks repository.WebhookEventRepository,
	actions *providers.ActionLogger,
	publisher *events.Publisher,
	logger *zap.Logger,
) *ShippingService {
	byName := make(map[string]providers.ShippingProvider, len(carriers))
	for _, c := range carriers {
		byName[c.Name()] = c
	}
	return &ShippingService{
		providers:       byName,
		defaultProvider: defaultProvider,
		shipments:       shipments,
		orders:          orders,
		payments:        payments,
		webhooks:        webhooks,
		actions:         actions,
		publisher:       publisher,
		logger:          logger,
	}
}

// CreateShipment registers the order with a carrier. A shipment already on
// record is returned as-is unless force is set, in which case it is replaced
// in place via the order-keyed upsert.
func (s *ShippingService) CreateShipment(ctx context.Context, orderID uuid.UUID, req *models.CreateShipmentRequest) (*models.Shipment, *ServiceError) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewServiceError(http.StatusNotFound, "order not found")
		}
		s.logger.Error("Failed to load order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, NewServiceError(http.StatusInternalServerError, "failed to load order")
	}
	return s.CreateFromOrder(ctx, order, req.Provider, req.Force)
}

// CreateFromOrder is the capture-path entry: it assumes the order is loaded
// and enforces that the payment is CAPTURED before anything leaves for a
// carrier.
func (s *ShippingService) CreateFromOrder(ctx context.Context, order *models.Order, providerName string, force bool) (*models.Shipment, *ServiceError) {
	if order.Status != models.OrderStatusPlaced {
		return nil, NewServiceError(http.StatusConflict, fmt.Sprintf("order is %s", order.Status))
	}

	// Force is the operator escape hatch: it also waives the captured-payment
	// gate (COD and manual reconciliation flows).
	if !force {
		payment, err := s.payments.FindByOrderID(ctx, order.ID)
		if err != nil || payment.Status != models.PaymentStatusCaptured {
			return nil, NewServiceError(http.StatusConflict, "payment not captured for order")
		}
	}

	if existing, err := s.shipments.FindByOrderID(ctx, order.ID); err == nil && !force {
		return existing, nil
	}

	if providerName == "" {
		providerName = s.defaultProvider
	}
	carrier, ok := s.providers[providerName]
	if !ok {
		return nil, NewServiceError(http.StatusBadRequest, fmt.Sprintf("unknown shipping provider %q", providerName))
	}

	result, err := carrier.CreateOrder(ctx, buildShipmentRequest(order))
	if err != nil {
		s.logger.Error("Carrier order creation failed",
			zap.String("provider", providerName),
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return nil, upstreamServiceError(err)
	}

	// Assign an AWB when creation alone did not yield one.
	if result.AWB == "" {
		assigned, err := carrier.AssignAWB(ctx, result)
		if err != nil {
			// The provider order exists; keep the shipment in CREATED so a
			// later assignment can pick it up.
			s.logger.Warn("AWB assignment failed after carrier order creation",
				zap.String("provider", providerName),
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
		} else {
			result = assigned
		}
	}

	shipment := &models.Shipment{
		OrderID:            order.ID,
		Provider:           providerName,
		ProviderOrderID:    result.ProviderOrderID,
		ProviderShipmentID: result.ProviderShipmentID,
		CourierName:        result.CourierName,
		Status:             models.ShipmentStatusCreated,
	}
	if result.AWB != "" {
		awb := result.AWB
		shipment.AWB = &awb
		shipment.Status = models.ShipmentStatusAWBAssigned
	}
	if len(result.Raw) > 0 {
		raw := providers.Sanitize(result.Raw)
		shipment.RawResponse = &raw
	}

	if err := s.shipments.Upsert(ctx, shipment); err != nil {
		s.logger.Error("Failed to persist shipment", zap.String("order_id", order.ID.String()), zap.Error(err))
		return nil, NewServiceError(http.StatusInternalServerError, "failed to persist shipment")
	}

	s.publisher.ShipmentCreated(ctx, shipment)
	return shipment, nil
}

// GetShipment returns the shipment for an order after an ownership check.
func (s *ShippingService) GetShipment(ctx context.Context, orderID, customerID uuid.UUID, privileged bool) (*models.Shipment, *ServiceError) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewServiceError(http.StatusNotFound, "order not found")
		}
		return nil, NewServiceError(http.StatusInternalServerError, "failed to load order")
	}
	if order.CustomerID != customerID && !privileged {
		return nil, NewServiceError(http.StatusForbidden, "order belongs to another customer")
	}

	shipment, err := s.shipments.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewServiceError(http.StatusNotFound, "no shipment for order")
		}
		return nil, NewServiceError(http.StatusInternalServerError, "failed to load shipment")
	}
	return shipment, nil
}

// RefreshTracking pulls the carrier's current status and folds it into the
// internal vocabulary. Same ownership rule as GetShipment.
func (s *ShippingService) RefreshTracking(ctx context.Context, orderID, customerID uuid.UUID, privileged bool) (*models.Shipment, *ServiceError) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewServiceError(http.StatusNotFound, "order not found")
		}
		return nil, NewServiceError(http.StatusInternalServerError, "failed to load order")
	}
	if order.CustomerID != customerID && !privileged {
		return nil, NewServiceError(http.StatusForbidden, "order belongs to another customer")
	}

	shipment, err := s.shipments.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewServiceError(http.StatusNotFound, "no shipment for order")
		}
		return nil, NewServiceError(http.StatusInternalServerError, "failed to load shipment")
	}
	if shipment.AWB == nil || *shipment.AWB == "" {
		return nil, NewServiceError(http.StatusConflict, "shipment has no AWB yet")
	}

	carrier, ok := s.providers[shipment.Provider]
	if !ok {
		return nil, NewServiceError(http.StatusInternalServerError, fmt.Sprintf("provider %q not configured", shipment.Provider))
	}

	track, err := carrier.Track(ctx, *shipment.AWB)
	if err != nil {
		return nil, upstreamServiceError(err)
	}

	return s.applyCarrierStatus(ctx, shipment, track.CarrierStatus, track.Raw)
}

// CancelShipment asks the carrier to cancel and marks the record CANCELLED.
func (s *ShippingService) CancelShipment(ctx context.Context, orderID uuid.UUID) (*models.Shipment, *ServiceError) {
	shipment, err := s.shipments.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewServiceError(http.StatusNotFound, "no shipment for order")
		}
		return nil, NewServiceError(http.StatusInternalServerError, "failed to load shipment")
	}
	if shipment.Status == models.ShipmentStatusCancelled {
		return shipment, nil
	}
	if shipment.Status == models.ShipmentStatusDelivered {
		return nil, NewServiceError(http.StatusConflict, "shipment already delivered")
	}

	if shipment.AWB != nil && *shipment.AWB != "" {
		carrier, ok := s.providers[shipment.Provider]
		if !ok {
			return nil, NewServiceError(http.StatusInternalServerError, fmt.Sprintf("provider %q not configured", shipment.Provider))
		}
		if err := carrier.Cancel(ctx, *shipment.AWB); err != nil {
			return nil, upstreamServiceError(err)
		}
	}

	shipment.Status = models.ShipmentStatusCancelled
	if err := s.shipments.Update(ctx, shipment); err != nil {
		return nil, NewServiceError(http.StatusInternalServerError, "failed to update shipment")
	}
	s.publisher.ShipmentUpdated(ctx, shipment)
	return shipment, nil
}

// carrierWebhookPayload is the least common denominator of NimbusPost and
// Shiprocket tracking pushes.
type carrierWebhookPayload struct {
	EventID       string `json:"event_id"`
	ID            string `json:"id"`
	AWB           string `json:"awb"`
	AWBNumber     string `json:"awb_number"`
	Status        string `json:"status"`
	CurrentStatus string `json:"current_status"`
}

// ProcessTrackingWebhook admits one carrier status push. Duplicate deliveries
// are recognized by event key and short-circuited with processed=false.
func (s *ShippingService) ProcessTrackingWebhook(ctx context.Context, provider string, body []byte) (bool, *ServiceError) {
	if _, ok := s.providers[provider]; !ok {
		return false, NewServiceError(http.StatusNotFound, fmt.Sprintf("unknown shipping provider %q", provider))
	}

	var payload carrierWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, NewServiceError(http.StatusBadRequest, "malformed webhook payload")
	}

	awb := payload.AWB
	if awb == "" {
		awb = payload.AWBNumber
	}
	rawStatus := payload.CurrentStatus
	if rawStatus == "" {
		rawStatus = payload.Status
	}
	if awb == "" || rawStatus == "" {
		return false, NewServiceError(http.StatusBadRequest, "webhook payload missing awb or status")
	}

	eventID := payload.EventID
	if eventID == "" {
		eventID = payload.ID
	}
	eventKey := WebhookEventKey(provider, eventID, body)

	created, err := s.webhooks.Insert(ctx, &models.WebhookEvent{
		Provider: provider,
		EventKey: eventKey,
		EventID:  eventID,
		Payload:  providers.Sanitize(body),
		Status:   "PROCESSED",
	})
	if err != nil {
		s.logger.Error("Failed to record shipping webhook event", zap.String("provider", provider), zap.Error(err))
		return false, NewServiceError(http.StatusInternalServerError, "failed to record webhook event")
	}

	s.actions.Record(ctx, providers.ActionEntry{
		Provider: provider,
		Action:   "tracking_webhook",
		Request:  body,
	})

	if !created {
		return false, nil
	}

	shipment, err := s.shipments.FindByAWB(ctx, awb)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Event admitted but no shipment to update; nothing to retry.
			s.logger.Warn("Tracking webhook for unknown AWB",
				zap.String("provider", provider),
				zap.String("awb", awb),
			)
			return true, nil
		}
		// Event already admitted; failing now would turn the carrier's
		// redelivery into a dedup drop and lose the update for good.
		s.logger.Error("Failed to load shipment for admitted webhook event",
			zap.String("provider", provider), zap.String("awb", awb), zap.Error(err))
		return true, nil
	}

	if _, svcErr := s.applyCarrierStatus(ctx, shipment, rawStatus, body); svcErr != nil {
		s.logger.Error("Failed to apply carrier status for admitted webhook event",
			zap.String("provider", provider),
			zap.String("awb", awb),
			zap.String("error", svcErr.Message),
		)
		return true, nil
	}
	return true, nil
}

func (s *ShippingService) applyCarrierStatus(ctx context.Context, shipment *models.Shipment, rawStatus string, raw []byte) (*models.Shipment, *ServiceError) {
	mapped := providers.MapCarrierStatus(rawStatus)

	changed := shipment.Status != mapped
	shipment.Status = mapped
	if len(raw) > 0 {
		payload := providers.Sanitize(raw)
		shipment.TrackingPayload = &payload
	}

	if err := s.shipments.Update(ctx, shipment); err != nil {
		s.logger.Error("Failed to update shipment status", zap.String("shipment_id", shipment.ID.String()), zap.Error(err))
		return nil, NewServiceError(http.StatusInternalServerError, "failed to update shipment")
	}

	if changed {
		s.publisher.ShipmentUpdated(ctx, shipment)
	}
	return shipment, nil
}

func buildShipmentRequest(order *models.Order) *providers.ShipmentRequest {
	req := &providers.ShipmentRequest{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		CustomerName: order.CustomerName,
		Phone:        order.Phone,
		Email:        order.Email,
		AddressLine:  order.AddressLine,
		City:         order.City,
		State:        order.State,
		Pincode:      order.Pincode,
		WeightKg:     defaultParcelWeightKg,
		LengthCm:     defaultParcelSideCm,
		WidthCm:      defaultParcelSideCm,
		HeightCm:     defaultParcelSideCm,
	}
	for _, item := range order.Items {
		unitPrice := item.Rate
		if item.Quantity > 0 {
			unitPrice = item.Amount / float64(item.Quantity)
		}
		req.Items = append(req.Items, providers.ShipmentItem{
			Name:         item.ProductName,
			SKU:          item.ProductID.String(),
			Quantity:     item.Quantity + item.FreeQuantity,
			SellingPrice: unitPrice,
		})
	}
	return req
}

// WebhookEventKey builds the provider-qualified dedup key. When the provider
// omits an event id the key falls back to a digest of the raw body, so exact
// redeliveries still collapse.
func WebhookEventKey(provider, eventID string, body []byte) string {
	if eventID == "" {
		sum := sha256.Sum256(body)
		eventID = hex.EncodeToString(sum[:])
	}
	return provider + ":" + eventID
}

func upstreamServiceError(err error) *ServiceError {
	var upstream *providers.UpstreamError
	if errors.As(err, &upstream) {
		return NewServiceError(http.StatusBadGateway, upstream.Message)
	}
	return NewServiceError(http.StatusBadGateway, err.Error())
}

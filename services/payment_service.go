package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"fulfillment-service/events"
	"fulfillment-service/gateway"
	"fulfillment-service/middleware"
	"fulfillment-service/models"
	"fulfillment-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// minIntentPaise is the gateway's minimum chargeable amount.
const minIntentPaise = 100

// loyaltyCreditor and shipmentCreator decouple the capture side effects from
// their concrete services so tests can substitute them.
type loyaltyCreditor interface {
	CreditForOrder(ctx context.Context, order *models.Order, source string) (bool, int, error)
}

type shipmentCreator interface {
	CreateFromOrder(ctx context.Context, order *models.Order, providerName string, force bool) (*models.Shipment, *ServiceError)
}

// PaymentService owns gateway intents, client-side verification, and the
// webhook capture path.
type PaymentService struct {
	payments  repository.PaymentRepository
	orders    repository.OrderRepository
	webhooks  repository.WebhookEventRepository
	gateway   gateway.Client
	keySecret string
	loyalty   loyaltyCreditor
	shipping  shipmentCreator
	publisher *events.Publisher
	logger    *zap.Logger
}

func NewPaymentService(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	webhooks repository.WebhookEventRepository,
	gw gateway.Client,
	keySecret string,
	loyalty loyaltyCreditor,
	shipping shipmentCreator,
	publisher *events.Publisher,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments:  payments,
		orders:    orders,
		webhooks:  webhooks,
		gateway:   gw,
		keySecret: keySecret,
		loyalty:   loyalty,
		shipping:  shipping,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateIntent opens (or returns the existing) gateway order for an order. A
// second call for the same order while the intent is open returns the original
// intent; an order already paid is a conflict.
func (s *PaymentService) CreateIntent(ctx context.Context, customerID uuid.UUID, role string, req *models.CreateIntentRequest) (*models.IntentResponse, *ServiceError) {
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, NewServiceError(http.StatusBadRequest, "invalid order id")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewServiceError(http.StatusNotFound, "order not found")
		}
		s.logger.Error("Failed to load order", zap.String("order_id", req.OrderID), zap.Error(err))
		return nil, NewServiceError(http.StatusInternalServerError, "failed to load order")
	}
	if order.CustomerID != customerID && !middleware.IsPrivileged(role) {
		return nil, NewServiceError(http.StatusForbidden, "order belongs to another customer")
	}
	if order.Status != models.OrderStatusPlaced {
		return nil, NewServiceError(http.StatusConflict, fmt.Sprintf("order is %s", order.Status))
	}

	var failed *models.Payment
	if existing, err := s.payments.FindByOrderID(ctx, orderID); err == nil {
		switch existing.Status {
		case models.PaymentStatusCaptured:
			return nil, NewServiceError(http.StatusConflict, "order already paid")
		case models.PaymentStatusCreated:
			return &models.IntentResponse{
				KeyID:           s.gateway.KeyID(),
				ProviderOrderID: existing.ProviderOrderID,
				Amount:          existing.Amount,
				Currency:        existing.Currency,
			}, nil
		case models.PaymentStatusFailed:
			// A failed attempt keeps its row; re-arm it with a fresh gateway
			// order instead of colliding on the order_id unique key.
			failed = existing
		}
	}

	amountPaise := int64(math.Round(order.NetAmount * 100))
	if amountPaise < minIntentPaise {
		return nil, NewServiceError(http.StatusBadRequest, "order amount below gateway minimum")
	}

	providerOrderID, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   amountPaise,
		Currency: "INR",
		Receipt:  order.OrderNumber,
		Notes:    map[string]interface{}{"order_id": order.ID.String()},
	})
	if err != nil {
		s.logger.Error("Gateway order creation failed", zap.String("order_id", req.OrderID), zap.Error(err))
		return nil, NewServiceError(http.StatusBadGateway, "payment gateway unavailable")
	}

	if failed != nil {
		reset, err := s.payments.ResetIntent(ctx, failed.ID, providerOrderID, amountPaise)
		if err != nil {
			s.logger.Error("Failed to reset failed payment intent", zap.String("payment_id", failed.ID.String()), zap.Error(err))
			return nil, NewServiceError(http.StatusInternalServerError, "failed to persist payment intent")
		}
		if !reset {
			// The row moved out of FAILED under us, most likely a late capture
			// webhook. Let the client re-read the current state.
			return nil, NewServiceError(http.StatusConflict, "payment state changed, retry")
		}
		return &models.IntentResponse{
			KeyID:           s.gateway.KeyID(),
			ProviderOrderID: providerOrderID,
			Amount:          amountPaise,
			Currency:        "INR",
		}, nil
	}

	payment := &models.Payment{
		OrderID:         orderID,
		Provider:        "razorpay",
		ProviderOrderID: providerOrderID,
		Amount:          amountPaise,
		Currency:        "INR",
		Status:          models.PaymentStatusCreated,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		// Lost a race with a concurrent intent; return the winner's intent.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if existing, ferr := s.payments.FindByOrderID(ctx, orderID); ferr == nil {
				return &models.IntentResponse{
					KeyID:           s.gateway.KeyID(),
					ProviderOrderID: existing.ProviderOrderID,
					Amount:          existing.Amount,
					Currency:        existing.Currency,
				}, nil
			}
		}
		s.logger.Error("Failed to persist payment intent", zap.String("order_id", req.OrderID), zap.Error(err))
		return nil, NewServiceError(http.StatusInternalServerError, "failed to persist payment intent")
	}

	return &models.IntentResponse{
		KeyID:           s.gateway.KeyID(),
		ProviderOrderID: providerOrderID,
		Amount:          amountPaise,
		Currency:        "INR",
	}, nil
}

// VerifyPayment validates the client-submitted capture proof. A payment
// already CAPTURED verifies idempotently; the side effects run at most once,
// gated by the conditional capture update.
func (s *PaymentService) VerifyPayment(ctx context.Context, customerID uuid.UUID, role string, req *models.VerifyPaymentRequest) (*models.Payment, *ServiceError) {
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, NewServiceError(http.StatusBadRequest, "invalid order id")
	}

	payment, err := s.payments.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewServiceError(http.StatusNotFound, "no payment intent for order")
		}
		return nil, NewServiceError(http.StatusInternalServerError, "failed to load payment")
	}
	if payment.ProviderOrderID != req.ProviderOrderID {
		return nil, NewServiceError(http.StatusBadRequest, "provider order id does not match intent")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, NewServiceError(http.StatusInternalServerError, "failed to load order")
	}
	if order.CustomerID != customerID && !middleware.IsPrivileged(role) {
		return nil, NewServiceError(http.StatusForbidden, "order belongs to another customer")
	}

	if !gateway.VerifyPaymentSignature(s.keySecret, req.ProviderOrderID, req.ProviderPaymentID, req.Signature) {
		return nil, NewServiceError(http.StatusBadRequest, "invalid payment signature")
	}

	won, err := s.payments.MarkCaptured(ctx, payment.ID, req.ProviderPaymentID, req.Signature, "{}")
	if err != nil {
		s.logger.Error("Failed to mark payment captured", zap.String("payment_id", payment.ID.String()), zap.Error(err))
		return nil, NewServiceError(http.StatusInternalServerError, "failed to capture payment")
	}

	if won {
		s.runCaptureSideEffects(ctx, order, payment)
	}

	captured, err := s.payments.FindByOrderID(ctx, orderID)
	if err != nil {
		return payment, nil
	}
	return captured, nil
}

// razorpayWebhookEvent mirrors the gateway's webhook envelope.
type razorpayWebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Amount  int64  `json:"amount"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ProcessWebhookEvent admits one gateway webhook delivery. eventID comes from
// the delivery headers and may be empty, in which case the body digest keys
// the dedup. Duplicates return processed=false with no error so the controller
// can acknowledge them.
func (s *PaymentService) ProcessWebhookEvent(ctx context.Context, eventID string, body []byte) (bool, *ServiceError) {
	var evt razorpayWebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return false, NewServiceError(http.StatusBadRequest, "malformed webhook payload")
	}

	eventKey := WebhookEventKey("razorpay", eventID, body)
	created, err := s.webhooks.Insert(ctx, &models.WebhookEvent{
		Provider: "razorpay",
		EventKey: eventKey,
		EventID:  eventID,
		Payload:  string(body),
		Status:   "PROCESSED",
	})
	if err != nil {
		s.logger.Error("Failed to record payment webhook event", zap.Error(err))
		return false, NewServiceError(http.StatusInternalServerError, "failed to record webhook event")
	}
	if !created {
		return false, nil
	}

	entity := evt.Payload.Payment.Entity
	switch evt.Event {
	case "payment.captured":
		if entity.OrderID == "" {
			return true, nil
		}
		payment, err := s.payments.FindByProviderOrderID(ctx, entity.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.logger.Warn("Webhook capture for unknown provider order",
					zap.String("provider_order_id", entity.OrderID))
				return true, nil
			}
			// The event is already admitted; a non-2xx here would make the
			// gateway's redelivery collide with the dedup key and drop the
			// capture for good. Acknowledge and leave it to reconciliation.
			s.logger.Error("Failed to load payment for admitted webhook event",
				zap.String("provider_order_id", entity.OrderID), zap.Error(err))
			return true, nil
		}

		won, err := s.payments.MarkCaptured(ctx, payment.ID, entity.ID, "", string(body))
		if err != nil {
			s.logger.Error("Failed to capture payment for admitted webhook event",
				zap.String("payment_id", payment.ID.String()), zap.Error(err))
			return true, nil
		}
		if won {
			if order, err := s.orders.FindByID(ctx, payment.OrderID); err == nil {
				s.runCaptureSideEffects(ctx, order, payment)
			}
		}
	case "payment.failed":
		if entity.OrderID == "" {
			return true, nil
		}
		payment, err := s.payments.FindByProviderOrderID(ctx, entity.OrderID)
		if err != nil {
			return true, nil
		}
		if err := s.payments.MarkFailed(ctx, payment.ID, string(body)); err != nil {
			s.logger.Error("Failed to mark payment failed", zap.String("payment_id", payment.ID.String()), zap.Error(err))
		}
	default:
		// Unhandled event types are admitted and dropped.
	}

	return true, nil
}

// runCaptureSideEffects performs the post-capture work: loyalty credit,
// shipment creation, and the settlement event. All best effort; each is
// separately idempotent, so a retry after a partial failure cannot
// double-apply.
func (s *PaymentService) runCaptureSideEffects(ctx context.Context, order *models.Order, payment *models.Payment) {
	if s.loyalty != nil {
		if _, _, err := s.loyalty.CreditForOrder(ctx, order, models.LoyaltySourcePaymentCaptured); err != nil {
			s.logger.Error("Loyalty credit failed after capture",
				zap.String("order_id", order.ID.String()), zap.Error(err))
		}
	}
	if s.shipping != nil {
		if _, svcErr := s.shipping.CreateFromOrder(ctx, order, "", false); svcErr != nil {
			s.logger.Error("Shipment creation failed after capture",
				zap.String("order_id", order.ID.String()),
				zap.String("error", svcErr.Message))
		}
	}
	s.publisher.PaymentCaptured(ctx, order.ID.String(), payment.ID.String(), payment.Amount, payment.Currency)
}

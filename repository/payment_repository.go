package repository

import (
	"context"
	"time"

	"fulfillment-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRepository defines data access for payment intents.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	FindByProviderOrderID(ctx context.Context, providerOrderID string) (*models.Payment, error)
	// MarkCaptured transitions the payment to CAPTURED with the capture
	// details. The update is guarded on status so a payment already CAPTURED
	// is left untouched; the returned bool reports whether this call won the
	// transition.
	MarkCaptured(ctx context.Context, paymentID uuid.UUID, providerPaymentID, signature, rawPayload string) (bool, error)
	MarkFailed(ctx context.Context, paymentID uuid.UUID, rawPayload string) error
	// ResetIntent re-arms a FAILED payment with a fresh gateway order so the
	// customer can retry. Guarded on status; the returned bool reports whether
	// the reset applied.
	ResetIntent(ctx context.Context, paymentID uuid.UUID, providerOrderID string, amount int64) (bool, error)
}

// GormPaymentRepository implements PaymentRepository using GORM.
type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *GormPaymentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *GormPaymentRepository) FindByProviderOrderID(ctx context.Context, providerOrderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("provider_order_id = ?", providerOrderID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *GormPaymentRepository) MarkCaptured(ctx context.Context, paymentID uuid.UUID, providerPaymentID, signature, rawPayload string) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status <> ?", paymentID, models.PaymentStatusCaptured).
		Updates(map[string]interface{}{
			"status":              models.PaymentStatusCaptured,
			"provider_payment_id": providerPaymentID,
			"signature":           signature,
			"raw_payload":         rawPayload,
			"captured_at":         &now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormPaymentRepository) ResetIntent(ctx context.Context, paymentID uuid.UUID, providerOrderID string, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, models.PaymentStatusFailed).
		Updates(map[string]interface{}{
			"status":              models.PaymentStatusCreated,
			"provider_order_id":   providerOrderID,
			"amount":              amount,
			"provider_payment_id": nil,
			"signature":           nil,
			"raw_payload":         nil,
			"failed_at":           nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormPaymentRepository) MarkFailed(ctx context.Context, paymentID uuid.UUID, rawPayload string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, models.PaymentStatusCreated).
		Updates(map[string]interface{}{
			"status":      models.PaymentStatusFailed,
			"raw_payload": rawPayload,
			"failed_at":   &now,
		}).Error
}

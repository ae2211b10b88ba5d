package repository

import (
	"context"
	"errors"
	"time"

	"fulfillment-service/models"

	"gorm.io/gorm"
)

// WebhookEventRepository is the idempotency guard shared by payment and
// shipping webhooks.
type WebhookEventRepository interface {
	// Insert atomically records the event keyed by its provider-qualified id.
	// It returns created=false (and no error) when an event with the same key
	// has already been admitted; the unique index is the atomicity boundary,
	// so two concurrent deliveries of the same event cannot both see
	// created=true.
	Insert(ctx context.Context, event *models.WebhookEvent) (created bool, err error)
}

// GormWebhookEventRepository implements WebhookEventRepository using GORM.
type GormWebhookEventRepository struct {
	db *gorm.DB
}

func NewGormWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

func (r *GormWebhookEventRepository) Insert(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = time.Now()
	}
	err := r.db.WithContext(ctx).Create(event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

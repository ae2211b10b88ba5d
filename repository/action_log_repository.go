package repository

import (
	"context"

	"fulfillment-service/models"

	"gorm.io/gorm"
)

// ShippingActionLogRepository appends audit rows for carrier interactions.
type ShippingActionLogRepository interface {
	Append(ctx context.Context, entry *models.ShippingActionLog) error
}

// GormShippingActionLogRepository implements ShippingActionLogRepository
// using GORM.
type GormShippingActionLogRepository struct {
	db *gorm.DB
}

func NewGormShippingActionLogRepository(db *gorm.DB) ShippingActionLogRepository {
	return &GormShippingActionLogRepository{db: db}
}

func (r *GormShippingActionLogRepository) Append(ctx context.Context, entry *models.ShippingActionLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

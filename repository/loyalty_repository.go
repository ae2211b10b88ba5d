package repository

import (
	"context"
	"errors"

	"fulfillment-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoyaltyRepository defines ledger access for the crediting gate.
type LoyaltyRepository interface {
	Exists(ctx context.Context, orderID uuid.UUID, source string) (bool, error)
	// Create inserts a ledger entry. A duplicate (order, source) insert is
	// reported as already-credited via created=false, not as an error.
	Create(ctx context.Context, tx *models.LoyaltyTransaction) (created bool, err error)
}

// GormLoyaltyRepository implements LoyaltyRepository using GORM.
type GormLoyaltyRepository struct {
	db *gorm.DB
}

func NewGormLoyaltyRepository(db *gorm.DB) LoyaltyRepository {
	return &GormLoyaltyRepository{db: db}
}

func (r *GormLoyaltyRepository) Exists(ctx context.Context, orderID uuid.UUID, source string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Where("order_id = ? AND source = ?", orderID, source).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormLoyaltyRepository) Create(ctx context.Context, tx *models.LoyaltyTransaction) (bool, error) {
	err := r.db.WithContext(ctx).Create(tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

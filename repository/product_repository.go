package repository

import (
	"context"
	"errors"

	"fulfillment-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrInsufficientStock is returned when a conditional decrement finds
	// less stock than requested.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductRepository defines catalog data access for the order builder.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	// DecrementStock atomically subtracts quantity from the product's stock,
	// failing with ErrInsufficientStock when the remaining stock is too low.
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
	// IncrementStock adds quantity back to the product's stock (additive,
	// used by order cancellation).
	IncrementStock(ctx context.Context, id uuid.UUID, quantity int) error
}

// GormProductRepository implements ProductRepository using GORM.
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) ProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProductRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *GormProductRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *GormProductRepository) IncrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", quantity)).Error
}

package repository

import (
	"context"

	"fulfillment-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShipmentRepository defines data access for shipments.
type ShipmentRepository interface {
	// Upsert inserts the shipment or, when one already exists for the order,
	// replaces it. Forced re-creation therefore never duplicates rows.
	Upsert(ctx context.Context, shipment *models.Shipment) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error)
	FindByAWB(ctx context.Context, awb string) (*models.Shipment, error)
	Update(ctx context.Context, shipment *models.Shipment) error
}

// GormShipmentRepository implements ShipmentRepository using GORM.
type GormShipmentRepository struct {
	db *gorm.DB
}

func NewGormShipmentRepository(db *gorm.DB) ShipmentRepository {
	return &GormShipmentRepository{db: db}
}

func (r *GormShipmentRepository) Upsert(ctx context.Context, shipment *models.Shipment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"provider", "provider_order_id", "provider_shipment_id",
				"awb", "courier_name", "status", "tracking_payload",
				"raw_response", "updated_at",
			}),
		}).
		Create(shipment).Error
}

func (r *GormShipmentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	var s models.Shipment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormShipmentRepository) FindByAWB(ctx context.Context, awb string) (*models.Shipment, error) {
	var s models.Shipment
	if err := r.db.WithContext(ctx).Where("awb = ?", awb).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormShipmentRepository) Update(ctx context.Context, shipment *models.Shipment) error {
	return r.db.WithContext(ctx).Save(shipment).Error
}

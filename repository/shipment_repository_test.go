package repository

import (
	"context"
	"testing"

	"fulfillment-service/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShipmentUpsertUsesOrderConflictTarget(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormShipmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "shipments" .* ON CONFLICT \("order_id"\) DO UPDATE SET`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	err := repo.Upsert(context.Background(), &models.Shipment{
		OrderID:         uuid.New(),
		Provider:        "nimbuspost",
		ProviderOrderID: "prov_1",
		Status:          models.ShipmentStatusCreated,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentFindByAWB(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormShipmentRepository(db)

	shipmentID := uuid.New()
	orderID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "order_id", "provider", "awb", "status"}).
		AddRow(shipmentID, orderID, "shiprocket", "AWB999", models.ShipmentStatusInTransit)

	mock.ExpectQuery(`SELECT \* FROM "shipments" WHERE awb = \$1`).
		WithArgs("AWB999", 1).
		WillReturnRows(rows)

	s, err := repo.FindByAWB(context.Background(), "AWB999")
	require.NoError(t, err)
	assert.Equal(t, orderID, s.OrderID)
	require.NotNil(t, s.AWB)
	assert.Equal(t, "AWB999", *s.AWB)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecrementStockConditionalUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormProductRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "products" SET "stock"=stock - \$1`).
		WithArgs(5, sqlmock.AnyArg(), id, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DecrementStock(context.Background(), id, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStockInsufficient(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormProductRepository(db)
	id := uuid.New()

	// The guard `stock >= ?` matches no row, so zero rows are affected.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "products"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.DecrementStock(context.Background(), id, 50)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementStockIsAdditive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormProductRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "products" SET "stock"=stock \+ \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.IncrementStock(context.Background(), id, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

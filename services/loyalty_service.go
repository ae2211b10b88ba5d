package services

import (
	"context"
	"math"

	"fulfillment-service/models"
	"fulfillment-service/repository"

	"go.uber.org/zap"
)

// LoyaltyService credits points when settlement events fire. The ledger's
// unique (order, source) index makes crediting exactly-once per trigger.
type LoyaltyService struct {
	loyalty repository.LoyaltyRepository
	logger  *zap.Logger
}

func NewLoyaltyService(loyalty repository.LoyaltyRepository, logger *zap.Logger) *LoyaltyService {
	return &LoyaltyService{loyalty: loyalty, logger: logger}
}

// CreditForOrder awards floor(netAmount / 100) points for the given source.
// Zero-point orders are skipped without writing a ledger row. The returned
// bool reports whether this call created the credit; a repeat for the same
// (order, source) returns false with no error.
func (s *LoyaltyService) CreditForOrder(ctx context.Context, order *models.Order, source string) (bool, int, error) {
	points := int(math.Floor(order.NetAmount / 100))
	if points <= 0 {
		return false, 0, nil
	}

	// Cheap pre-check; the unique index remains the real gate under
	// concurrency.
	exists, err := s.loyalty.Exists(ctx, order.ID, source)
	if err != nil {
		return false, 0, err
	}
	if exists {
		return false, points, nil
	}

	created, err := s.loyalty.Create(ctx, &models.LoyaltyTransaction{
		CustomerID: order.CustomerID,
		OrderID:    order.ID,
		Source:     source,
		Points:     points,
	})
	if err != nil {
		return false, 0, err
	}
	if created {
		s.logger.Info("Loyalty points credited",
			zap.String("order_id", order.ID.String()),
			zap.String("source", source),
			zap.Int("points", points),
		)
	}
	return created, points, nil
}

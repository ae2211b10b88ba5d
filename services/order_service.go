package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"fulfillment-service/middleware"
	"fulfillment-service/models"
	"fulfillment-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const orderNumberAttempts = 5

// OrderService owns order construction and the order status machine.
type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, products repository.ProductRepository, logger *zap.Logger) *OrderService {
	return &OrderService{orders: orders, products: products, logger: logger}
}

// CreateOrder prices the requested lines against the catalog, reserves stock,
// and persists the order in PLACED. Pricing resolution per line: an explicit
// rate override wins, then the product's reference rate, then its list price.
func (s *OrderService) CreateOrder(ctx context.Context, customerID uuid.UUID, req *models.CreateOrderRequest) (*models.Order, *ServiceError) {
	order := &models.Order{
		CustomerID:   customerID,
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Email:        req.Email,
		AddressLine:  req.AddressLine,
		City:         req.City,
		State:        req.State,
		Pincode:      req.Pincode,
		Status:       models.OrderStatusPlaced,
	}

	var subtotal, totalDiscount, totalTax float64

	for i := range req.Items {
		line := &req.Items[i]

		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, NewServiceError(http.StatusBadRequest, fmt.Sprintf("invalid product id %q", line.ProductID))
		}

		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewServiceError(http.StatusNotFound, fmt.Sprintf("product %s not found", line.ProductID))
			}
			s.logger.Error("Failed to load product", zap.String("product_id", line.ProductID), zap.Error(err))
			return nil, NewServiceError(http.StatusInternalServerError, "failed to load product")
		}

		item := s.priceLine(product, line)
		subtotal += item.Rate * float64(item.Quantity)
		totalDiscount += item.Discount
		totalTax += item.CGST + item.SGST
		order.Items = append(order.Items, item)
	}

	// Reserve stock line by line. Free units consume stock the same as paid
	// ones. A failed line aborts the order; stock already reserved for earlier
	// lines stays reserved until the client retries or the rows are reconciled.
	for _, item := range order.Items {
		if err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity+item.FreeQuantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return nil, NewServiceError(http.StatusConflict, fmt.Sprintf("insufficient stock for product %s", item.ProductID))
			}
			s.logger.Error("Failed to reserve stock", zap.String("product_id", item.ProductID.String()), zap.Error(err))
			return nil, NewServiceError(http.StatusInternalServerError, "failed to reserve stock")
		}
	}

	order.Subtotal = round2(subtotal)
	order.TotalDiscount = round2(totalDiscount)
	order.TotalTax = round2(totalTax)
	order.NetAmount = round2(math.Max(subtotal-totalDiscount+totalTax, 0))

	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = generateOrderNumber()
		err := s.orders.Create(ctx, order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Error("Failed to create order", zap.Error(err))
			return nil, NewServiceError(http.StatusInternalServerError, "failed to create order")
		}
		s.logger.Warn("Order number collision, regenerating", zap.String("order_number", order.OrderNumber))
	}

	return nil, NewServiceError(http.StatusInternalServerError, "failed to allocate order number")
}

// priceLine resolves one order line's rate, discount, and GST split.
func (s *OrderService) priceLine(product *models.Product, line *models.CreateOrderItemRequest) models.OrderItem {
	rate := product.ListPrice
	if product.ReferenceRate > 0 {
		rate = product.ReferenceRate
	}
	if line.Rate != nil {
		rate = *line.Rate
	}

	lineBase := rate * float64(line.Quantity)
	taxable := math.Max(lineBase-line.Discount, 0)

	// GST splits evenly into CGST and SGST unless the caller overrides the
	// halves individually.
	cgst := taxable * (product.GSTRate / 2) / 100
	sgst := taxable * (product.GSTRate / 2) / 100
	if line.CGST != nil {
		cgst = taxable * *line.CGST / 100
	}
	if line.SGST != nil {
		sgst = taxable * *line.SGST / 100
	}

	amount := taxable + cgst + sgst
	if line.Amount != nil {
		amount = *line.Amount
	}

	return models.OrderItem{
		ProductID:    product.ID,
		ProductName:  product.Name,
		Quantity:     line.Quantity,
		FreeQuantity: line.FreeQuantity,
		Batch:        product.Batch,
		Expiry:       product.Expiry,
		Rate:         rate,
		Discount:     line.Discount,
		CGST:         round2(cgst),
		SGST:         round2(sgst),
		Amount:       round2(amount),
	}
}

// GetOrder returns the order after an ownership check: customers may only read
// their own orders, privileged roles may read any.
func (s *OrderService) GetOrder(ctx context.Context, orderID, customerID uuid.UUID, role string) (*models.Order, *ServiceError) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewServiceError(http.StatusNotFound, "order not found")
		}
		s.logger.Error("Failed to load order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, NewServiceError(http.StatusInternalServerError, "failed to load order")
	}
	if order.CustomerID != customerID && !middleware.IsPrivileged(role) {
		return nil, NewServiceError(http.StatusForbidden, "order belongs to another customer")
	}
	return order, nil
}

// ListOrders returns the caller's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, customerID uuid.UUID, page, limit int) ([]models.Order, int64, *ServiceError) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	orders, total, err := s.orders.FindByCustomerID(ctx, customerID, page, limit)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.String("customer_id", customerID.String()), zap.Error(err))
		return nil, 0, NewServiceError(http.StatusInternalServerError, "failed to list orders")
	}
	return orders, total, nil
}

// UpdateStatus drives the order status machine. PLACED may move to CANCELLED
// or DELIVERED; both are terminal. Re-submitting the status an order already
// holds is a no-op, any other transition out of a terminal state is rejected.
// Cancellation restores the reserved stock, free units included.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, customerID uuid.UUID, role, newStatus string) (*models.Order, *ServiceError) {
	if newStatus != models.OrderStatusCancelled && newStatus != models.OrderStatusDelivered {
		return nil, NewServiceError(http.StatusBadRequest, fmt.Sprintf("unsupported status %q", newStatus))
	}
	if newStatus == models.OrderStatusDelivered && !middleware.IsPrivileged(role) {
		return nil, NewServiceError(http.StatusForbidden, "only privileged roles may mark orders delivered")
	}

	order, svcErr := s.GetOrder(ctx, orderID, customerID, role)
	if svcErr != nil {
		return nil, svcErr
	}

	if order.Status == newStatus {
		return order, nil
	}
	if order.Status != models.OrderStatusPlaced {
		return nil, NewServiceError(http.StatusConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, newStatus))
	}

	now := time.Now()
	switch newStatus {
	case models.OrderStatusCancelled:
		for _, item := range order.Items {
			if err := s.products.IncrementStock(ctx, item.ProductID, item.Quantity+item.FreeQuantity); err != nil {
				s.logger.Error("Failed to restore stock on cancellation",
					zap.String("order_id", order.ID.String()),
					zap.String("product_id", item.ProductID.String()),
					zap.Error(err),
				)
				return nil, NewServiceError(http.StatusInternalServerError, "failed to restore stock")
			}
		}
		order.Status = models.OrderStatusCancelled
		order.CancelledAt = &now
	case models.OrderStatusDelivered:
		order.Status = models.OrderStatusDelivered
		order.DeliveredAt = &now
	}

	if err := s.orders.Update(ctx, order); err != nil {
		s.logger.Error("Failed to update order status", zap.String("order_id", order.ID.String()), zap.Error(err))
		return nil, NewServiceError(http.StatusInternalServerError, "failed to update order status")
	}
	return order, nil
}

// generateOrderNumber builds a date-coded order number with a random suffix,
// e.g. ORD-20260901-4F7A2C. Collisions are resolved by the caller's retry.
func generateOrderNumber() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// Fall back to a time-derived suffix; uniqueness is still enforced by
		// the database index.
		return fmt.Sprintf("ORD-%s-%06d", time.Now().Format("20060102"), time.Now().UnixNano()%1000000)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), string(buf))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

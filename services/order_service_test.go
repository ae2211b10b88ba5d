package services

import (
	"context"
	"testing"

	"fulfillment-service/middleware"
	"fulfillment-service/models"
	"fulfillment-service/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubOrderRepo struct {
	orders     map[uuid.UUID]*models.Order
	createErrs []error // consumed per Create call before succeeding
	updates    int
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (r *stubOrderRepo) Create(_ context.Context, order *models.Order) error {
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	r.orders[order.ID] = order
	return nil
}

func (r *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if o, ok := r.orders[id]; ok {
		return o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubOrderRepo) FindByCustomerID(_ context.Context, customerID uuid.UUID, _, _ int) ([]models.Order, int64, error) {
	var out []models.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubOrderRepo) Update(_ context.Context, order *models.Order) error {
	r.updates++
	r.orders[order.ID] = order
	return nil
}

type stubProductRepo struct {
	products   map[uuid.UUID]*models.Product
	increments map[uuid.UUID]int
	decrements map[uuid.UUID]int
}

func newStubProductRepo(products ...*models.Product) *stubProductRepo {
	r := &stubProductRepo{
		products:   make(map[uuid.UUID]*models.Product),
		increments: make(map[uuid.UUID]int),
		decrements: make(map[uuid.UUID]int),
	}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductRepo) Create(_ context.Context, p *models.Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *stubProductRepo) DecrementStock(_ context.Context, id uuid.UUID, quantity int) error {
	p, ok := r.products[id]
	if !ok || p.Stock < quantity {
		return repository.ErrInsufficientStock
	}
	p.Stock -= quantity
	r.decrements[id] += quantity
	return nil
}

func (r *stubProductRepo) IncrementStock(_ context.Context, id uuid.UUID, quantity int) error {
	if p, ok := r.products[id]; ok {
		p.Stock += quantity
	}
	r.increments[id] += quantity
	return nil
}

func testProduct(name string, rate, gst float64, stock int) *models.Product {
	return &models.Product{
		ID:            uuid.New(),
		SKU:           name,
		Name:          name,
		ReferenceRate: rate,
		ListPrice:     rate * 1.2,
		GSTRate:       gst,
		Stock:         stock,
	}
}

func orderRequest(items ...models.CreateOrderItemRequest) *models.CreateOrderRequest {
	return &models.CreateOrderRequest{
		CustomerName: "Mehta Pharma",
		Phone:        "9876543210",
		AddressLine:  "14 MG Road",
		City:         "Pune",
		State:        "Maharashtra",
		Pincode:      "411001",
		Items:        items,
	}
}

func TestCreateOrderComputesTotals(t *testing.T) {
	tablet := testProduct("PARA-650", 50, 5, 100)
	syrup := testProduct("COF-SYR", 200, 5, 100)
	productRepo := newStubProductRepo(tablet, syrup)
	svc := NewOrderService(newStubOrderRepo(), productRepo, zap.NewNop())

	order, svcErr := svc.CreateOrder(context.Background(), uuid.New(), orderRequest(
		models.CreateOrderItemRequest{ProductID: tablet.ID.String(), Quantity: 3},
		models.CreateOrderItemRequest{ProductID: syrup.ID.String(), Quantity: 1},
	))
	require.Nil(t, svcErr)

	assert.Equal(t, 350.0, order.Subtotal)
	assert.Equal(t, 17.5, order.TotalTax)
	assert.Equal(t, 0.0, order.TotalDiscount)
	assert.Equal(t, 367.5, order.NetAmount)
	assert.Equal(t, models.OrderStatusPlaced, order.Status)
	assert.Regexp(t, `^ORD-\d{8}-[A-Z2-9]{6}$`, order.OrderNumber)

	// GST split evenly across CGST and SGST.
	assert.Equal(t, 3.75, order.Items[0].CGST)
	assert.Equal(t, 3.75, order.Items[0].SGST)
}

func TestCreateOrderRateOverrideWins(t *testing.T) {
	tablet := testProduct("PARA-650", 50, 12, 100)
	productRepo := newStubProductRepo(tablet)
	svc := NewOrderService(newStubOrderRepo(), productRepo, zap.NewNop())

	override := 40.0
	order, svcErr := svc.CreateOrder(context.Background(), uuid.New(), orderRequest(
		models.CreateOrderItemRequest{ProductID: tablet.ID.String(), Quantity: 2, Rate: &override, Discount: 10},
	))
	require.Nil(t, svcErr)

	require.Len(t, order.Items, 1)
	assert.Equal(t, 40.0, order.Items[0].Rate)
	// taxable = 2*40 - 10 = 70; 12% GST split 6/6.
	assert.Equal(t, 4.2, order.Items[0].CGST)
	assert.Equal(t, 4.2, order.Items[0].SGST)
	assert.Equal(t, 78.4, order.Items[0].Amount)
}

func TestCreateOrderDiscountCannotGoNegative(t *testing.T) {
	tablet := testProduct("PARA-650", 50, 5, 100)
	productRepo := newStubProductRepo(tablet)
	svc := NewOrderService(newStubOrderRepo(), productRepo, zap.NewNop())

	order, svcErr := svc.CreateOrder(context.Background(), uuid.New(), orderRequest(
		models.CreateOrderItemRequest{ProductID: tablet.ID.String(), Quantity: 1, Discount: 500},
	))
	require.Nil(t, svcErr)

	assert.Equal(t, 0.0, order.Items[0].CGST)
	assert.Equal(t, 0.0, order.Items[0].Amount)
	assert.Equal(t, 0.0, order.NetAmount)
}

func TestCreateOrderReservesFreeQuantity(t *testing.T) {
	tablet := testProduct("PARA-650", 50, 5, 100)
	productRepo := newStubProductRepo(tablet)
	svc := NewOrderService(newStubOrderRepo(), productRepo, zap.NewNop())

	_, svcErr := svc.CreateOrder(context.Background(), uuid.New(), orderRequest(
		models.CreateOrderItemRequest{ProductID: tablet.ID.String(), Quantity: 10, FreeQuantity: 2},
	))
	require.Nil(t, svcErr)

	assert.Equal(t, 12, productRepo.decrements[tablet.ID])
	assert.Equal(t, 88, tablet.Stock)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	tablet := testProduct("PARA-650", 50, 5, 5)
	productRepo := newStubProductRepo(tablet)
	svc := NewOrderService(newStubOrderRepo(), productRepo, zap.NewNop())

	_, svcErr := svc.CreateOrder(context.Background(), uuid.New(), orderRequest(
		models.CreateOrderItemRequest{ProductID: tablet.ID.String(), Quantity: 6},
	))
	require.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
}

func TestCreateOrderRetriesOnNumberCollision(t *testing.T) {
	tablet := testProduct("PARA-650", 50, 5, 100)
	orderRepo := newStubOrderRepo()
	orderRepo.createErrs = []error{gorm.ErrDuplicatedKey, gorm.ErrDuplicatedKey}
	svc := NewOrderService(orderRepo, newStubProductRepo(tablet), zap.NewNop())

	order, svcErr := svc.CreateOrder(context.Background(), uuid.New(), orderRequest(
		models.CreateOrderItemRequest{ProductID: tablet.ID.String(), Quantity: 1},
	))
	require.Nil(t, svcErr)
	assert.NotEmpty(t, order.OrderNumber)
}

func TestCancelRestoresStock(t *testing.T) {
	tablet := testProduct("PARA-650", 50, 5, 100)
	productRepo := newStubProductRepo(tablet)
	orderRepo := newStubOrderRepo()
	svc := NewOrderService(orderRepo, productRepo, zap.NewNop())

	customerID := uuid.New()
	order, svcErr := svc.CreateOrder(context.Background(), customerID, orderRequest(
		models.CreateOrderItemRequest{ProductID: tablet.ID.String(), Quantity: 4, FreeQuantity: 1},
	))
	require.Nil(t, svcErr)
	require.Equal(t, 95, tablet.Stock)

	cancelled, svcErr := svc.UpdateStatus(context.Background(), order.ID, customerID, "", models.OrderStatusCancelled)
	require.Nil(t, svcErr)

	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 100, tablet.Stock)
}

func TestCancelIsIdempotent(t *testing.T) {
	tablet := testProduct("PARA-650", 50, 5, 100)
	productRepo := newStubProductRepo(tablet)
	svc := NewOrderService(newStubOrderRepo(), productRepo, zap.NewNop())

	customerID := uuid.New()
	order, svcErr := svc.CreateOrder(context.Background(), customerID, orderRequest(
		models.CreateOrderItemRequest{ProductID: tablet.ID.String(), Quantity: 4},
	))
	require.Nil(t, svcErr)

	_, svcErr = svc.UpdateStatus(context.Background(), order.ID, customerID, "", models.OrderStatusCancelled)
	require.Nil(t, svcErr)
	_, svcErr = svc.UpdateStatus(context.Background(), order.ID, customerID, "", models.OrderStatusCancelled)
	require.Nil(t, svcErr)

	// Stock restored once, not twice.
	assert.Equal(t, 4, productRepo.increments[tablet.ID])
}

func TestDeliveredRequiresPrivilegedRole(t *testing.T) {
	tablet := testProduct("PARA-650", 50, 5, 100)
	svc := NewOrderService(newStubOrderRepo(), newStubProductRepo(tablet), zap.NewNop())

	customerID := uuid.New()
	order, svcErr := svc.CreateOrder(context.Background(), customerID, orderRequest(
		models.CreateOrderItemRequest{ProductID: tablet.ID.String(), Quantity: 1},
	))
	require.Nil(t, svcErr)

	_, svcErr = svc.UpdateStatus(context.Background(), order.ID, customerID, "", models.OrderStatusDelivered)
	require.NotNil(t, svcErr)
	assert.Equal(t, 403, svcErr.StatusCode)

	delivered, svcErr := svc.UpdateStatus(context.Background(), order.ID, customerID, middleware.RoleAdmin, models.OrderStatusDelivered)
	require.Nil(t, svcErr)
	assert.Equal(t, models.OrderStatusDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)
}

func TestTerminalStateTransitionsRejected(t *testing.T) {
	tablet := testProduct("PARA-650", 50, 5, 100)
	svc := NewOrderService(newStubOrderRepo(), newStubProductRepo(tablet), zap.NewNop())

	customerID := uuid.New()
	order, svcErr := svc.CreateOrder(context.Background(), customerID, orderRequest(
		models.CreateOrderItemRequest{ProductID: tablet.ID.String(), Quantity: 1},
	))
	require.Nil(t, svcErr)

	_, svcErr = svc.UpdateStatus(context.Background(), order.ID, customerID, "", models.OrderStatusCancelled)
	require.Nil(t, svcErr)

	_, svcErr = svc.UpdateStatus(context.Background(), order.ID, customerID, middleware.RoleAdmin, models.OrderStatusDelivered)
	require.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
}

func TestGetOrderOwnership(t *testing.T) {
	tablet := testProduct("PARA-650", 50, 5, 100)
	svc := NewOrderService(newStubOrderRepo(), newStubProductRepo(tablet), zap.NewNop())

	owner := uuid.New()
	order, svcErr := svc.CreateOrder(context.Background(), owner, orderRequest(
		models.CreateOrderItemRequest{ProductID: tablet.ID.String(), Quantity: 1},
	))
	require.Nil(t, svcErr)

	_, svcErr = svc.GetOrder(context.Background(), order.ID, uuid.New(), "")
	require.NotNil(t, svcErr)
	assert.Equal(t, 403, svcErr.StatusCode)

	got, svcErr := svc.GetOrder(context.Background(), order.ID, uuid.New(), middleware.RoleDistributor)
	require.Nil(t, svcErr)
	assert.Equal(t, order.ID, got.ID)
}

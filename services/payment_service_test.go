package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fulfillment-service/events"
	"fulfillment-service/gateway"
	"fulfillment-service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testKeySecret = "rzp_test_secret"

type stubPaymentRepo struct {
	byOrder map[uuid.UUID]*models.Payment

	// markCapturedErrs is consumed one per MarkCaptured call.
	markCapturedErrs []error
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{byOrder: make(map[uuid.UUID]*models.Payment)}
}

func (r *stubPaymentRepo) Create(_ context.Context, p *models.Payment) error {
	if _, ok := r.byOrder[p.OrderID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.byOrder[p.OrderID] = p
	return nil
}

func (r *stubPaymentRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) (*models.Payment, error) {
	if p, ok := r.byOrder[orderID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubPaymentRepo) FindByProviderOrderID(_ context.Context, providerOrderID string) (*models.Payment, error) {
	for _, p := range r.byOrder {
		if p.ProviderOrderID == providerOrderID {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubPaymentRepo) MarkCaptured(_ context.Context, paymentID uuid.UUID, providerPaymentID, signature, rawPayload string) (bool, error) {
	if len(r.markCapturedErrs) > 0 {
		err := r.markCapturedErrs[0]
		r.markCapturedErrs = r.markCapturedErrs[1:]
		if err != nil {
			return false, err
		}
	}
	for _, p := range r.byOrder {
		if p.ID != paymentID {
			continue
		}
		if p.Status == models.PaymentStatusCaptured {
			return false, nil
		}
		p.Status = models.PaymentStatusCaptured
		p.ProviderPaymentID = &providerPaymentID
		p.Signature = &signature
		p.RawPayload = &rawPayload
		return true, nil
	}
	return false, nil
}

func (r *stubPaymentRepo) MarkFailed(_ context.Context, paymentID uuid.UUID, rawPayload string) error {
	for _, p := range r.byOrder {
		if p.ID == paymentID && p.Status == models.PaymentStatusCreated {
			p.Status = models.PaymentStatusFailed
			p.RawPayload = &rawPayload
		}
	}
	return nil
}

func (r *stubPaymentRepo) ResetIntent(_ context.Context, paymentID uuid.UUID, providerOrderID string, amount int64) (bool, error) {
	for _, p := range r.byOrder {
		if p.ID != paymentID || p.Status != models.PaymentStatusFailed {
			continue
		}
		p.Status = models.PaymentStatusCreated
		p.ProviderOrderID = providerOrderID
		p.Amount = amount
		p.ProviderPaymentID = nil
		p.Signature = nil
		p.RawPayload = nil
		return true, nil
	}
	return false, nil
}

type stubWebhookRepo struct {
	keys map[string]bool
}

func newStubWebhookRepo() *stubWebhookRepo {
	return &stubWebhookRepo{keys: make(map[string]bool)}
}

func (r *stubWebhookRepo) Insert(_ context.Context, event *models.WebhookEvent) (bool, error) {
	if r.keys[event.EventKey] {
		return false, nil
	}
	r.keys[event.EventKey] = true
	return true, nil
}

type stubGateway struct {
	calls int
}

func (g *stubGateway) CreateOrder(_ context.Context, _ gateway.OrderRequest) (string, error) {
	g.calls++
	return fmt.Sprintf("order_stub%d", g.calls), nil
}

func (g *stubGateway) KeyID() string { return "rzp_test_key" }

type recordingLoyalty struct{ calls int }

func (l *recordingLoyalty) CreditForOrder(_ context.Context, _ *models.Order, _ string) (bool, int, error) {
	l.calls++
	return true, 1, nil
}

type recordingShipping struct{ calls int }

func (s *recordingShipping) CreateFromOrder(_ context.Context, order *models.Order, _ string, _ bool) (*models.Shipment, *ServiceError) {
	s.calls++
	return &models.Shipment{OrderID: order.ID}, nil
}

type paymentFixture struct {
	svc      *PaymentService
	orders   *stubOrderRepo
	payments *stubPaymentRepo
	webhooks *stubWebhookRepo
	gw       *stubGateway
	loyalty  *recordingLoyalty
	shipping *recordingShipping
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		orders:   newStubOrderRepo(),
		payments: newStubPaymentRepo(),
		webhooks: newStubWebhookRepo(),
		gw:       &stubGateway{},
		loyalty:  &recordingLoyalty{},
		shipping: &recordingShipping{},
	}
	f.svc = NewPaymentService(
		f.payments, f.orders, f.webhooks,
		f.gw, testKeySecret,
		f.loyalty, f.shipping,
		events.NewPublisher(nil, "", zap.NewNop()),
		zap.NewNop(),
	)
	return f
}

func (f *paymentFixture) placedOrder(t *testing.T, customerID uuid.UUID, net float64) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     models.OrderStatusPlaced,
		NetAmount:  net,
	}
	require.NoError(t, f.orders.Create(context.Background(), order))
	return order
}

func TestCreateIntentBelowGatewayMinimum(t *testing.T) {
	f := newPaymentFixture()
	customerID := uuid.New()
	order := f.placedOrder(t, customerID, 0.50)

	_, svcErr := f.svc.CreateIntent(context.Background(), customerID, "", &models.CreateIntentRequest{OrderID: order.ID.String()})
	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
	assert.Zero(t, f.gw.calls)
}

func TestCreateIntentIsIdempotentWhileOpen(t *testing.T) {
	f := newPaymentFixture()
	customerID := uuid.New()
	order := f.placedOrder(t, customerID, 367.5)

	first, svcErr := f.svc.CreateIntent(context.Background(), customerID, "", &models.CreateIntentRequest{OrderID: order.ID.String()})
	require.Nil(t, svcErr)
	assert.Equal(t, int64(36750), first.Amount)
	assert.Equal(t, "rzp_test_key", first.KeyID)

	second, svcErr := f.svc.CreateIntent(context.Background(), customerID, "", &models.CreateIntentRequest{OrderID: order.ID.String()})
	require.Nil(t, svcErr)
	assert.Equal(t, first.ProviderOrderID, second.ProviderOrderID)
	assert.Equal(t, 1, f.gw.calls)
}

func TestCreateIntentConflictsWhenAlreadyPaid(t *testing.T) {
	f := newPaymentFixture()
	customerID := uuid.New()
	order := f.placedOrder(t, customerID, 500)

	_, svcErr := f.svc.CreateIntent(context.Background(), customerID, "", &models.CreateIntentRequest{OrderID: order.ID.String()})
	require.Nil(t, svcErr)

	payment, err := f.payments.FindByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	won, err := f.payments.MarkCaptured(context.Background(), payment.ID, "pay_x", "sig", "{}")
	require.NoError(t, err)
	require.True(t, won)

	_, svcErr = f.svc.CreateIntent(context.Background(), customerID, "", &models.CreateIntentRequest{OrderID: order.ID.String()})
	require.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
}

func TestCreateIntentRearmsFailedPayment(t *testing.T) {
	f := newPaymentFixture()
	customerID := uuid.New()
	order := f.placedOrder(t, customerID, 500)

	first, svcErr := f.svc.CreateIntent(context.Background(), customerID, "", &models.CreateIntentRequest{OrderID: order.ID.String()})
	require.Nil(t, svcErr)

	payment, err := f.payments.FindByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NoError(t, f.payments.MarkFailed(context.Background(), payment.ID, "{}"))

	second, svcErr := f.svc.CreateIntent(context.Background(), customerID, "", &models.CreateIntentRequest{OrderID: order.ID.String()})
	require.Nil(t, svcErr)
	assert.Equal(t, 2, f.gw.calls)
	assert.NotEqual(t, first.ProviderOrderID, second.ProviderOrderID)

	// The existing row was re-armed, not duplicated.
	rearmed, err := f.payments.FindByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, rearmed.ID)
	assert.Equal(t, models.PaymentStatusCreated, rearmed.Status)
	assert.Equal(t, second.ProviderOrderID, rearmed.ProviderOrderID)
}

func TestVerifyPaymentRejectsTamperedSignature(t *testing.T) {
	f := newPaymentFixture()
	customerID := uuid.New()
	order := f.placedOrder(t, customerID, 500)

	intent, svcErr := f.svc.CreateIntent(context.Background(), customerID, "", &models.CreateIntentRequest{OrderID: order.ID.String()})
	require.Nil(t, svcErr)

	_, svcErr = f.svc.VerifyPayment(context.Background(), customerID, "", &models.VerifyPaymentRequest{
		OrderID:           order.ID.String(),
		ProviderOrderID:   intent.ProviderOrderID,
		ProviderPaymentID: "pay_abc",
		Signature:         "deadbeef",
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
	assert.Zero(t, f.loyalty.calls)
	assert.Zero(t, f.shipping.calls)
}

func TestVerifyPaymentSideEffectsRunOnce(t *testing.T) {
	f := newPaymentFixture()
	customerID := uuid.New()
	order := f.placedOrder(t, customerID, 500)

	intent, svcErr := f.svc.CreateIntent(context.Background(), customerID, "", &models.CreateIntentRequest{OrderID: order.ID.String()})
	require.Nil(t, svcErr)

	req := &models.VerifyPaymentRequest{
		OrderID:           order.ID.String(),
		ProviderOrderID:   intent.ProviderOrderID,
		ProviderPaymentID: "pay_abc",
		Signature:         gateway.PaymentSignature(testKeySecret, intent.ProviderOrderID, "pay_abc"),
	}

	payment, svcErr := f.svc.VerifyPayment(context.Background(), customerID, "", req)
	require.Nil(t, svcErr)
	assert.Equal(t, models.PaymentStatusCaptured, payment.Status)

	// Re-submitting the same proof succeeds but runs no side effects again.
	payment, svcErr = f.svc.VerifyPayment(context.Background(), customerID, "", req)
	require.Nil(t, svcErr)
	assert.Equal(t, models.PaymentStatusCaptured, payment.Status)

	assert.Equal(t, 1, f.loyalty.calls)
	assert.Equal(t, 1, f.shipping.calls)
}

func TestWebhookCapturePath(t *testing.T) {
	f := newPaymentFixture()
	customerID := uuid.New()
	order := f.placedOrder(t, customerID, 500)

	intent, svcErr := f.svc.CreateIntent(context.Background(), customerID, "", &models.CreateIntentRequest{OrderID: order.ID.String()})
	require.Nil(t, svcErr)

	body := []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_wh1","order_id":"%s","amount":50000}}}}`,
		intent.ProviderOrderID,
	))

	processed, svcErr := f.svc.ProcessWebhookEvent(context.Background(), "evt_1", body)
	require.Nil(t, svcErr)
	assert.True(t, processed)

	payment, err := f.payments.FindByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCaptured, payment.Status)
	assert.Equal(t, 1, f.loyalty.calls)
	assert.Equal(t, 1, f.shipping.calls)

	// Redelivery of the same event id is recognized and dropped.
	processed, svcErr = f.svc.ProcessWebhookEvent(context.Background(), "evt_1", body)
	require.Nil(t, svcErr)
	assert.False(t, processed)
	assert.Equal(t, 1, f.loyalty.calls)
}

func TestWebhookCaptureFailureStillAcknowledged(t *testing.T) {
	f := newPaymentFixture()
	customerID := uuid.New()
	order := f.placedOrder(t, customerID, 500)

	intent, svcErr := f.svc.CreateIntent(context.Background(), customerID, "", &models.CreateIntentRequest{OrderID: order.ID.String()})
	require.Nil(t, svcErr)

	body := []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_flaky","order_id":"%s","amount":50000}}}}`,
		intent.ProviderOrderID,
	))

	// The event is durably recorded before the capture write fails, so the
	// delivery must still be acknowledged: a 5xx would make the gateway's
	// redelivery a dedup drop and lose the capture outright.
	f.payments.markCapturedErrs = []error{errors.New("deadlock detected")}
	processed, svcErr := f.svc.ProcessWebhookEvent(context.Background(), "evt_flaky", body)
	require.Nil(t, svcErr)
	assert.True(t, processed)

	payment, err := f.payments.FindByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCreated, payment.Status)
	assert.Zero(t, f.loyalty.calls)

	processed, svcErr = f.svc.ProcessWebhookEvent(context.Background(), "evt_flaky", body)
	require.Nil(t, svcErr)
	assert.False(t, processed)
}

func TestWebhookUnknownProviderOrderIsAcknowledged(t *testing.T) {
	f := newPaymentFixture()

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_unknown","amount":100}}}}`)
	processed, svcErr := f.svc.ProcessWebhookEvent(context.Background(), "evt_2", body)
	require.Nil(t, svcErr)
	assert.True(t, processed)
}

func TestWebhookEventKeyFallsBackToBodyDigest(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)

	withID := WebhookEventKey("razorpay", "evt_9", body)
	assert.Equal(t, "razorpay:evt_9", withID)

	noID := WebhookEventKey("razorpay", "", body)
	assert.Equal(t, noID, WebhookEventKey("razorpay", "", body))
	assert.NotEqual(t, noID, WebhookEventKey("razorpay", "", []byte(`{"event":"payment.failed"}`)))
}

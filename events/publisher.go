package events

import (
	"context"
	"encoding/json"
	"time"

	"fulfillment-service/models"
	"fulfillment-service/pkg/aws"

	"go.uber.org/zap"
)

// Publisher emits settlement events to SNS. Publishing is best effort: a
// broker failure is logged and swallowed so it can never fail a capture or a
// shipment write.
type Publisher struct {
	sns      aws.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

func NewPublisher(sns aws.SNSPublisher, topicArn string, logger *zap.Logger) *Publisher {
	return &Publisher{sns: sns, topicArn: topicArn, logger: logger}
}

// Enabled reports whether the publisher is wired to a topic. When SNS is not
// configured all publish calls are silent no-ops.
func (p *Publisher) Enabled() bool {
	return p != nil && p.sns != nil && p.topicArn != ""
}

func (p *Publisher) PaymentCaptured(ctx context.Context, orderID, paymentID string, amount int64, currency string) {
	p.publish(ctx, "payment.captured", models.PaymentCapturedEvent{
		EventType: "payment.captured",
		OrderID:   orderID,
		PaymentID: paymentID,
		Amount:    amount,
		Currency:  currency,
		Timestamp: time.Now().UTC(),
	})
}

func (p *Publisher) ShipmentCreated(ctx context.Context, shipment *models.Shipment) {
	p.shipmentEvent(ctx, "shipment.created", shipment)
}

func (p *Publisher) ShipmentUpdated(ctx context.Context, shipment *models.Shipment) {
	p.shipmentEvent(ctx, "shipment.updated", shipment)
}

func (p *Publisher) shipmentEvent(ctx context.Context, eventType string, shipment *models.Shipment) {
	evt := models.ShipmentEvent{
		EventType:  eventType,
		ShipmentID: shipment.ID.String(),
		OrderID:    shipment.OrderID.String(),
		Provider:   shipment.Provider,
		Status:     shipment.Status,
		Timestamp:  time.Now().UTC(),
	}
	if shipment.AWB != nil {
		evt.AWB = *shipment.AWB
	}
	p.publish(ctx, eventType, evt)
}

func (p *Publisher) publish(ctx context.Context, eventType string, payload interface{}) {
	if !p.Enabled() {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.String("event_type", eventType), zap.Error(err))
		return
	}

	if err := p.sns.Publish(ctx, p.topicArn, body); err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("event_type", eventType),
			zap.String("topic_arn", p.topicArn),
			zap.Error(err),
		)
	}
}

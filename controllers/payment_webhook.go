package controllers

import (
	"io"
	"net/http"

	"fulfillment-service/gateway"
	"fulfillment-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentWebhookController receives gateway webhook deliveries.
type PaymentWebhookController struct {
	service       *services.PaymentService
	webhookSecret string
	logger        *zap.Logger
}

func NewPaymentWebhookController(service *services.PaymentService, webhookSecret string, logger *zap.Logger) *PaymentWebhookController {
	return &PaymentWebhookController{service: service, webhookSecret: webhookSecret, logger: logger}
}

// HandleWebhook handles POST /webhooks/payment. When the webhook secret is
// not configured the endpoint fails closed with 503 rather than accepting
// unverifiable deliveries.
func (ctrl *PaymentWebhookController) HandleWebhook(c *gin.Context) {
	if ctrl.webhookSecret == "" {
		ctrl.logger.Error("Webhook received but no webhook secret is configured")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhook verification not configured"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if !gateway.VerifyWebhookSignature(ctrl.webhookSecret, body, signature) {
		ctrl.logger.Warn("Webhook signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook signature"})
		return
	}

	eventID := c.GetHeader("X-Razorpay-Event-Id")
	processed, svcErr := ctrl.service.ProcessWebhookEvent(c.Request.Context(), eventID, body)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	// Duplicates are acknowledged so the gateway stops redelivering.
	c.JSON(http.StatusOK, gin.H{"status": "ok", "duplicate": !processed})
}

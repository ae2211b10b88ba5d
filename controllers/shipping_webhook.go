package controllers

import (
	"io"
	"net/http"

	"fulfillment-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ShippingWebhookController receives carrier tracking pushes.
type ShippingWebhookController struct {
	service *services.ShippingService
	logger  *zap.Logger
}

func NewShippingWebhookController(service *services.ShippingService, logger *zap.Logger) *ShippingWebhookController {
	return &ShippingWebhookController{service: service, logger: logger}
}

// HandleTrackingWebhook handles POST /webhooks/shipping/:provider.
func (ctrl *ShippingWebhookController) HandleTrackingWebhook(c *gin.Context) {
	provider := c.Param("provider")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	processed, svcErr := ctrl.service.ProcessTrackingWebhook(c.Request.Context(), provider, body)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "duplicate": !processed})
}

package controllers

import (
	"net/http"

	"fulfillment-service/middleware"
	"fulfillment-service/models"
	"fulfillment-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentController exposes the gateway intent and verification endpoints.
type PaymentController struct {
	service *services.PaymentService
	logger  *zap.Logger
}

func NewPaymentController(service *services.PaymentService, logger *zap.Logger) *PaymentController {
	return &PaymentController{service: service, logger: logger}
}

// CreateIntent handles POST /payments/intent.
func (ctrl *PaymentController) CreateIntent(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}

	var req models.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	intent, svcErr := ctrl.service.CreateIntent(c.Request.Context(), customerID, middleware.GetRole(c), &req)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctrl.logger.Info("Payment intent ready",
		zap.String("order_id", req.OrderID),
		zap.String("provider_order_id", intent.ProviderOrderID),
		zap.Int64("amount", intent.Amount),
	)
	c.JSON(http.StatusOK, intent)
}

// VerifyPayment handles POST /payments/verify.
func (ctrl *PaymentController) VerifyPayment(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}

	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, svcErr := ctrl.service.VerifyPayment(c.Request.Context(), customerID, middleware.GetRole(c), &req)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctrl.logger.Info("Payment verified",
		zap.String("order_id", req.OrderID),
		zap.String("provider_payment_id", req.ProviderPaymentID),
	)
	c.JSON(http.StatusOK, gin.H{"verified": true, "payment": payment})
}

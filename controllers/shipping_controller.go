package controllers

import (
	"net/http"

	"fulfillment-service/middleware"
	"fulfillment-service/models"
	"fulfillment-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ShippingController exposes the shipment endpoints.
type ShippingController struct {
	service *services.ShippingService
	logger  *zap.Logger
}

func NewShippingController(service *services.ShippingService, logger *zap.Logger) *ShippingController {
	return &ShippingController{service: service, logger: logger}
}

// CreateShipment handles POST /shipments/:orderId/create. Privileged roles only; the
// force flag replaces an existing shipment instead of returning it.
func (ctrl *ShippingController) CreateShipment(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req models.CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shipment, svcErr := ctrl.service.CreateShipment(c.Request.Context(), orderID, &req)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctrl.logger.Info("Shipment ready",
		zap.String("order_id", orderID.String()),
		zap.String("provider", shipment.Provider),
		zap.String("status", shipment.Status),
	)
	c.JSON(http.StatusCreated, shipment)
}

// GetShipment handles GET /shipments/:orderId.
func (ctrl *ShippingController) GetShipment(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	privileged := middleware.IsPrivileged(middleware.GetRole(c))
	shipment, svcErr := ctrl.service.GetShipment(c.Request.Context(), orderID, customerID, privileged)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, shipment)
}

// RefreshTracking handles GET /shipments/:orderId/track.
func (ctrl *ShippingController) RefreshTracking(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	privileged := middleware.IsPrivileged(middleware.GetRole(c))
	shipment, svcErr := ctrl.service.RefreshTracking(c.Request.Context(), orderID, customerID, privileged)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, shipment)
}

// CancelShipment handles POST /shipments/:orderId/cancel.
func (ctrl *ShippingController) CancelShipment(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	shipment, svcErr := ctrl.service.CancelShipment(c.Request.Context(), orderID)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, shipment)
}

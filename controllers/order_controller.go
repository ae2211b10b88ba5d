package controllers

import (
	"net/http"
	"strconv"

	"fulfillment-service/middleware"
	"fulfillment-service/models"
	"fulfillment-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderController exposes the order endpoints.
type OrderController struct {
	service *services.OrderService
	logger  *zap.Logger
}

func NewOrderController(service *services.OrderService, logger *zap.Logger) *OrderController {
	return &OrderController{service: service, logger: logger}
}

// CreateOrder handles POST /orders.
func (ctrl *OrderController) CreateOrder(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, svcErr := ctrl.service.CreateOrder(c.Request.Context(), customerID, &req)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctrl.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("net_amount", order.NetAmount),
	)
	c.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /orders/:id.
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, svcErr := ctrl.service.GetOrder(c.Request.Context(), orderID, customerID, middleware.GetRole(c))
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrders handles GET /orders.
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	orders, total, svcErr := ctrl.service.ListOrders(c.Request.Context(), customerID, page, limit)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// UpdateOrderStatus handles PATCH /orders/:id/status.
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, svcErr := ctrl.service.UpdateStatus(c.Request.Context(), orderID, customerID, middleware.GetRole(c), req.Status)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctrl.logger.Info("Order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", order.Status),
	)
	c.JSON(http.StatusOK, order)
}

// callerID resolves the authenticated caller's id or writes the error
// response itself.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	raw, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id in token"})
		return uuid.Nil, false
	}
	return id, true
}

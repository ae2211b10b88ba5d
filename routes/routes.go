package routes

import (
	"net/http"

	"fulfillment-service/controllers"
	"fulfillment-service/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers bundles everything the router mounts.
type Controllers struct {
	Orders          *controllers.OrderController
	Payments        *controllers.PaymentController
	PaymentWebhook  *controllers.PaymentWebhookController
	Shipping        *controllers.ShippingController
	ShippingWebhook *controllers.ShippingWebhookController
}

// Setup registers all routes. Webhooks sit outside the auth middleware since
// providers authenticate by signature, not by bearer token.
func Setup(router *gin.Engine, c Controllers, jwtSecret string) {
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/payment", c.PaymentWebhook.HandleWebhook)
		webhooks.POST("/shipping/:provider", c.ShippingWebhook.HandleTrackingWebhook)
	}

	api := router.Group("/", middleware.AuthMiddleware(jwtSecret))

	orders := api.Group("/orders", middleware.RateLimitMiddleware())
	{
		orders.POST("", c.Orders.CreateOrder)
		orders.GET("", c.Orders.ListOrders)
		orders.GET("/:id", c.Orders.GetOrder)
		orders.PATCH("/:id/status", c.Orders.UpdateOrderStatus)
	}

	payments := api.Group("/payments", middleware.RateLimitMiddleware())
	{
		payments.POST("/intent", c.Payments.CreateIntent)
		payments.POST("/verify", c.Payments.VerifyPayment)
	}

	shipments := api.Group("/shipments")
	{
		shipments.GET("/:orderId", c.Shipping.GetShipment)
		shipments.GET("/:orderId/track", c.Shipping.RefreshTracking)

		privileged := shipments.Group("", middleware.RequireRoles(middleware.RoleAdmin, middleware.RoleDistributor))
		{
			privileged.POST("/:orderId/create", c.Shipping.CreateShipment)
			privileged.POST("/:orderId/cancel", c.Shipping.CancelShipment)
		}
	}
}

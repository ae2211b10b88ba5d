package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fulfillment-service/controllers"
	"fulfillment-service/database"
	"fulfillment-service/events"
	"fulfillment-service/gateway"
	"fulfillment-service/logger"
	"fulfillment-service/middleware"
	"fulfillment-service/models"
	"fulfillment-service/pkg/aws"
	"fulfillment-service/providers"
	"fulfillment-service/repository"
	"fulfillment-service/routes"
	"fulfillment-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger.Initialize(os.Getenv("APP_ENV"))
	defer logger.Log.Sync()
	log := logger.Log

	cfg := LoadConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// AWS is optional: SNS and Secrets Manager only activate when configured.
	var publisher *events.Publisher
	awsCfg, err := aws.LoadAWSConfig(ctx)
	if err != nil {
		log.Warn("AWS config unavailable, events and secrets disabled", zap.Error(err))
	} else {
		if cfg.AWSUseSecrets {
			secrets := aws.NewSecretsClient(awsCfg)
			if err := cfg.ApplySecrets(ctx, secrets, log); err != nil {
				log.Fatal("Failed to load secrets", zap.Error(err))
			}
		}
		if cfg.SNSTopicArn != "" {
			publisher = events.NewPublisher(aws.NewSNSClient(awsCfg), cfg.SNSTopicArn, log)
		}
	}
	if publisher == nil {
		publisher = events.NewPublisher(nil, "", log)
	}

	db, err := database.Connect(cfg.DB, log,
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.WebhookEvent{},
		&models.LoyaltyTransaction{},
		&models.Shipment{},
		&models.ShippingActionLog{},
	)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	defer database.Close()

	// Repositories.
	productRepo := repository.NewGormProductRepository(db)
	orderRepo := repository.NewGormOrderRepository(db)
	paymentRepo := repository.NewGormPaymentRepository(db)
	webhookRepo := repository.NewGormWebhookEventRepository(db)
	loyaltyRepo := repository.NewGormLoyaltyRepository(db)
	shipmentRepo := repository.NewGormShipmentRepository(db)
	actionLogRepo := repository.NewGormShippingActionLogRepository(db)

	// Carriers share one action logger so every outbound call and inbound
	// push lands in the same audit trail.
	actionLogger := providers.NewActionLogger(actionLogRepo, log)
	carriers := []providers.ShippingProvider{
		providers.NewNimbusPostProvider(cfg.NimbusPostBaseURL, cfg.NimbusPostEmail, cfg.NimbusPostPassword, actionLogger, log),
		providers.NewShiprocketProvider(cfg.ShiprocketBaseURL, cfg.ShiprocketEmail, cfg.ShiprocketPassword, actionLogger, log),
	}

	// Services.
	orderService := services.NewOrderService(orderRepo, productRepo, log)
	loyaltyService := services.NewLoyaltyService(loyaltyRepo, log)
	shippingService := services.NewShippingService(
		carriers, cfg.DefaultShippingProvider,
		shipmentRepo, orderRepo, paymentRepo, webhookRepo,
		actionLogger, publisher, log,
	)
	paymentService := services.NewPaymentService(
		paymentRepo, orderRepo, webhookRepo,
		gateway.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
		cfg.RazorpayKeySecret,
		loyaltyService, shippingService, publisher, log,
	)

	// HTTP surface.
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	routes.Setup(router, routes.Controllers{
		Orders:          controllers.NewOrderController(orderService, log),
		Payments:        controllers.NewPaymentController(paymentService, log),
		PaymentWebhook:  controllers.NewPaymentWebhookController(paymentService, cfg.RazorpayWebhookSecret, log),
		Shipping:        controllers.NewShippingController(shippingService, log),
		ShippingWebhook: controllers.NewShippingWebhookController(shippingService, log),
	}, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("Fulfillment service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"fulfillment-service/database"
	"fulfillment-service/pkg/aws"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config carries everything main wires together. Values come from the
// environment (with .env support for local runs); in deployed environments
// the sensitive ones can be overridden from one Secrets Manager entry.
type Config struct {
	Env  string
	Port string

	DB database.PostgresConfig

	JWTSecret string

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	NimbusPostBaseURL  string
	NimbusPostEmail    string
	NimbusPostPassword string

	ShiprocketBaseURL  string
	ShiprocketEmail    string
	ShiprocketPassword string

	DefaultShippingProvider string

	SNSTopicArn    string
	AWSUseSecrets  bool
	AWSSecretsName string
}

func LoadConfig(logger *zap.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, relying on environment")
	}

	cfg := &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DB: database.PostgresConfig{
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "fulfillment"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "Asia/Kolkata"),
		},

		JWTSecret: getEnv("JWT_SECRET", ""),

		RazorpayKeyID:         getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
		RazorpayWebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),

		NimbusPostBaseURL:  getEnv("NIMBUSPOST_BASE_URL", "https://api.nimbuspost.com/v1"),
		NimbusPostEmail:    getEnv("NIMBUSPOST_EMAIL", ""),
		NimbusPostPassword: getEnv("NIMBUSPOST_PASSWORD", ""),

		ShiprocketBaseURL:  getEnv("SHIPROCKET_BASE_URL", "https://apiv2.shiprocket.in"),
		ShiprocketEmail:    getEnv("SHIPROCKET_EMAIL", ""),
		ShiprocketPassword: getEnv("SHIPROCKET_PASSWORD", ""),

		DefaultShippingProvider: getEnv("DEFAULT_SHIPPING_PROVIDER", "nimbuspost"),

		SNSTopicArn:    getEnv("SNS_TOPIC_ARN", ""),
		AWSUseSecrets:  getEnv("AWS_USE_SECRETS", "false") == "true",
		AWSSecretsName: getEnv("AWS_SECRETS_NAME", "fulfillment-service/secrets"),
	}

	return cfg
}

// secretOverrides is the JSON shape of the Secrets Manager entry.
type secretOverrides struct {
	JWTSecret             string `json:"jwt_secret"`
	DBPassword            string `json:"db_password"`
	RazorpayKeyID         string `json:"razorpay_key_id"`
	RazorpayKeySecret     string `json:"razorpay_key_secret"`
	RazorpayWebhookSecret string `json:"razorpay_webhook_secret"`
	NimbusPostPassword    string `json:"nimbuspost_password"`
	ShiprocketPassword    string `json:"shiprocket_password"`
}

// ApplySecrets pulls the credential bundle from Secrets Manager and overlays
// any non-empty field onto the config.
func (c *Config) ApplySecrets(ctx context.Context, secrets *aws.SecretsClient, logger *zap.Logger) error {
	if !c.AWSUseSecrets {
		return nil
	}

	raw, err := secrets.GetSecret(ctx, c.AWSSecretsName)
	if err != nil {
		return fmt.Errorf("load secrets bundle: %w", err)
	}

	var overrides secretOverrides
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		return fmt.Errorf("parse secrets bundle: %w", err)
	}

	if overrides.JWTSecret != "" {
		c.JWTSecret = overrides.JWTSecret
	}
	if overrides.DBPassword != "" {
		c.DB.Password = overrides.DBPassword
	}
	if overrides.RazorpayKeyID != "" {
		c.RazorpayKeyID = overrides.RazorpayKeyID
	}
	if overrides.RazorpayKeySecret != "" {
		c.RazorpayKeySecret = overrides.RazorpayKeySecret
	}
	if overrides.RazorpayWebhookSecret != "" {
		c.RazorpayWebhookSecret = overrides.RazorpayWebhookSecret
	}
	if overrides.NimbusPostPassword != "" {
		c.NimbusPostPassword = overrides.NimbusPostPassword
	}
	if overrides.ShiprocketPassword != "" {
		c.ShiprocketPassword = overrides.ShiprocketPassword
	}

	logger.Info("Applied credential overrides from Secrets Manager",
		zap.String("secret_name", c.AWSSecretsName))
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

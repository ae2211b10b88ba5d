package gateway

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// OrderRequest carries what the gateway needs to open a payment intent.
// Amount is in minor currency units (paise).
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]interface{}
}

// Client is the outbound payment-gateway boundary. The production
// implementation wraps the Razorpay SDK; tests substitute a stub.
type Client interface {
	// CreateOrder creates a provider-side order and returns its id.
	CreateOrder(ctx context.Context, req OrderRequest) (string, error)
	KeyID() string
}

// RazorpayClient implements Client using the Razorpay Go SDK.
type RazorpayClient struct {
	client *razorpay.Client
	keyID  string
}

func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		client: razorpay.NewClient(keyID, keySecret),
		keyID:  keyID,
	}
}

func (c *RazorpayClient) KeyID() string { return c.keyID }

func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	body, err := c.client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay order create: %w", err)
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("razorpay order create: response missing order id")
	}
	return id, nil
}

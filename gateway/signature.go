package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// PaymentSignature computes the gateway's proof-of-payment signature:
// HMAC-SHA256(secret, providerOrderID + "|" + providerPaymentID), hex encoded.
func PaymentSignature(secret, providerOrderID, providerPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(providerOrderID + "|" + providerPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature reports whether the client-submitted signature
// matches the expected one. Comparison is constant time.
func VerifyPaymentSignature(secret, providerOrderID, providerPaymentID, signature string) bool {
	expected := PaymentSignature(secret, providerOrderID, providerPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the provider-computed signature over the raw
// webhook body.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

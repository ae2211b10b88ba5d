package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentSignatureRoundTrip(t *testing.T) {
	secret := "rzp_test_secret"
	sig := PaymentSignature(secret, "order_abc", "pay_xyz")

	assert.Len(t, sig, 64) // hex-encoded SHA-256
	assert.True(t, VerifyPaymentSignature(secret, "order_abc", "pay_xyz", sig))
}

func TestVerifyPaymentSignatureRejectsTampering(t *testing.T) {
	secret := "rzp_test_secret"
	sig := PaymentSignature(secret, "order_abc", "pay_xyz")

	assert.False(t, VerifyPaymentSignature(secret, "order_abc", "pay_other", sig))
	assert.False(t, VerifyPaymentSignature(secret, "order_other", "pay_xyz", sig))
	assert.False(t, VerifyPaymentSignature("wrong_secret", "order_abc", "pay_xyz", sig))
	assert.False(t, VerifyPaymentSignature(secret, "order_abc", "pay_xyz", ""))
}

func TestSignatureCoversBothIDsJointly(t *testing.T) {
	// The pipe separator means moving a character across the boundary must
	// change the signature.
	secret := "rzp_test_secret"
	a := PaymentSignature(secret, "order_ab", "cpay")
	b := PaymentSignature(secret, "order_a", "bcpay")
	assert.NotEqual(t, a, b)
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "whsec_123"
	body := []byte(`{"event":"payment.captured"}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifyWebhookSignature(secret, body, sig))
	assert.False(t, VerifyWebhookSignature(secret, []byte(`{"event":"payment.failed"}`), sig))
	assert.False(t, VerifyWebhookSignature("other", body, sig))
	assert.False(t, VerifyWebhookSignature(secret, body, "not-hex"))
}

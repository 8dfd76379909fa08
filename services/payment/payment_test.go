package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test_secret_key"

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureRoundTrip(t *testing.T) {
	sig := sign(testSecret, "order_123", "pay_456")
	assert.True(t, VerifySignature(testSecret, "order_123", "pay_456", sig))
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	sig := sign(testSecret, "order_123", "pay_456")

	// Any single-character change to the signature makes it false.
	raw := []byte(sig)
	for i := range raw {
		flipped := append([]byte(nil), raw...)
		if flipped[i] == 'a' {
			flipped[i] = 'b'
		} else {
			flipped[i] = 'a'
		}
		assert.False(t, VerifySignature(testSecret, "order_123", "pay_456", string(flipped)),
			"flipped byte %d should not verify", i)
	}

	// Swapping in a different order or payment id fails too.
	assert.False(t, VerifySignature(testSecret, "order_124", "pay_456", sig))
	assert.False(t, VerifySignature(testSecret, "order_123", "pay_457", sig))
	// Wrong secret fails.
	assert.False(t, VerifySignature("other_secret", "order_123", "pay_456", sig))
	// Empty signature fails.
	assert.False(t, VerifySignature(testSecret, "order_123", "pay_456", ""))
}

func TestGatewayVerifyUsesConfiguredSecret(t *testing.T) {
	g := NewRazorpayGateway("rzp_test_key", testSecret, zap.NewNop())
	sig := sign(testSecret, "order_123", "pay_456")

	assert.True(t, g.Verify("order_123", "pay_456", sig))
	assert.False(t, g.Verify("order_123", "pay_456", sign("wrong", "order_123", "pay_456")))
}

func TestCreateOrderRejectsInvalidAmounts(t *testing.T) {
	g := NewRazorpayGateway("rzp_test_key", testSecret, zap.NewNop())

	// Rejected locally, before any processor call.
	_, err := g.CreateOrder(context.Background(), 0, "INR")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = g.CreateOrder(context.Background(), -4999, "INR")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

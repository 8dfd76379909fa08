package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verify recomputes the HMAC-SHA256 of "orderID|paymentID" with the
// server-held secret and compares it against the supplied signature in
// constant time. True only on an exact match; a failed verification is
// final for that order.
func (g *RazorpayGateway) Verify(orderID, paymentID, signature string) bool {
	return VerifySignature(g.secret, orderID, paymentID, signature)
}

// VerifySignature is the bare signature check, separated so tests and
// callers without a client can use it directly.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

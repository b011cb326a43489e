// Package payment talks to the card gateway: issuing gateway orders,
// checking HMAC signatures on client confirmations and webhooks, and
// decoding webhook events.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the lowercase hex HMAC-SHA256 of message under secret.
func Sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the HMAC of message under secret.
// An empty secret or signature never verifies.
func Verify(secret string, message []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, message)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyPaymentSignature checks the signature the checkout widget hands
// back to the browser after a successful payment.
func VerifyPaymentSignature(secret, gatewayOrderID, paymentID, signature string) bool {
	if gatewayOrderID == "" || paymentID == "" {
		return false
	}
	return Verify(secret, []byte(gatewayOrderID+"|"+paymentID), signature)
}

// VerifyWebhookSignature checks a webhook delivery against the exact bytes
// received on the wire.
func VerifyWebhookSignature(secret string, rawBody []byte, signature string) bool {
	return Verify(secret, rawBody, signature)
}

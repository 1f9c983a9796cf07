package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body,
// keyed with the shared webhook secret.
const SignatureHeader = "Webhook-Signature"

// rawBodyKey is where the verified payload is stored for the handler, since
// the body reader is consumed during verification.
const rawBodyKey = "webhook_raw_body"

// PaymentWebhookAuth verifies the provider's signature over the raw body.
// Requests failing verification are rejected before any order mutation.
func PaymentWebhookAuth() gin.HandlerFunc {
	secret := os.Getenv("PAYMENT_WEBHOOK_SECRET")
	if secret == "" {
		panic("PAYMENT_WEBHOOK_SECRET is not set")
	}

	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			c.Abort()
			return
		}

		provided := c.GetHeader(SignatureHeader)
		if provided == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing webhook signature"})
			c.Abort()
			return
		}

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		expected := mac.Sum(nil)

		providedBytes, err := hex.DecodeString(provided)
		if err != nil || !hmac.Equal(providedBytes, expected) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook signature"})
			c.Abort()
			return
		}

		c.Set(rawBodyKey, body)
		c.Next()
	}
}

// WebhookBody returns the payload captured by PaymentWebhookAuth.
func WebhookBody(c *gin.Context) []byte {
	v, exists := c.Get(rawBodyKey)
	if !exists {
		return nil
	}
	body, _ := v.([]byte)
	return body
}

// SignWebhookBody computes the signature the provider would attach to body.
// Used by tests and local tooling.
func SignWebhookBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/payment"
)

const maxWebhookBody = 1 << 20

// webhookSignature reads the gateway's header, accepting the generic name
// some proxies forward it under.
func webhookSignature(c *gin.Context) string {
	if signature := c.GetHeader("X-Razorpay-Signature"); signature != "" {
		return signature
	}
	return c.GetHeader("X-Signature")
}

// PaymentWebhook verifies the raw body before anything parses it. Once the
// signature checks out the gateway always gets 200, unless the store
// failed and a redelivery is wanted.
func PaymentWebhook(webhookSecret string, reconciler WebhookReconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/payment-webhook"
		defer handlePanic(c, route)

		if webhookSecret == "" {
			respondServiceError(c, route, fmt.Errorf("webhook secret: %w", apperr.ErrMisconfigured))
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "unreadable body")
			return
		}

		signature := webhookSignature(c)
		if signature == "" {
			respondWithError(c, http.StatusBadRequest, route, "missing signature")
			return
		}
		if !payment.VerifyWebhookSignature(webhookSecret, body, signature) {
			log.Println("[WEBHOOK] [WARN] signature mismatch, event dropped")
			respondWithError(c, http.StatusBadRequest, route, "invalid signature")
			return
		}

		event, err := payment.ParseWebhookEvent(body)
		if err != nil {
			log.Println("[WEBHOOK] [ERROR] signed body could not be decoded:", err)
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}

		outcome, err := reconciler.Reconcile(c.Request.Context(), event)
		if err != nil {
			log.Printf("[WEBHOOK] [ERROR] %s for %s not applied: %v", event.Name(), event.GatewayOrderID(), err)
			respondWithError(c, http.StatusInternalServerError, route, "temporarily unable to process event")
			return
		}

		log.Printf("[WEBHOOK] [INFO] %s for %s: %s", event.Name(), event.GatewayOrderID(), outcome)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/payment"
)

type createPaymentOrderRequest struct {
	// Amount is the grand total in major currency units.
	Amount  float64 `json:"amount" binding:"required"`
	Receipt string  `json:"receipt"`
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

func CreatePaymentOrder(gateway PaymentOrderCreator, currency string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/payment/create-order"
		defer handlePanic(c, route)

		var req createPaymentOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		amountMinor, err := payment.ToMinorUnits(req.Amount)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		order, err := gateway.CreateOrder(ctx, amountMinor, currency, req.Receipt)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		log.Printf("[PAYMENT] [INFO] gateway order %s created, amount %d", order.ID, order.Amount)
		c.JSON(http.StatusOK, gin.H{
			"id":       order.ID,
			"amount":   order.Amount,
			"currency": order.Currency,
		})
	}
}

// VerifyPayment checks a widget confirmation without creating anything.
func VerifyPayment(keySecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/payment/verify"
		defer handlePanic(c, route)

		if keySecret == "" {
			respondServiceError(c, route, fmt.Errorf("payment key secret: %w", apperr.ErrMisconfigured))
			return
		}

		var req verifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		if !payment.VerifyPaymentSignature(keySecret, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
			log.Printf("[PAYMENT] [WARN] signature mismatch for gateway order %s", req.RazorpayOrderID)
			c.JSON(http.StatusBadRequest, gin.H{"verified": false})
			return
		}

		c.JSON(http.StatusOK, gin.H{"verified": true})
	}
}

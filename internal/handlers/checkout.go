package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/checkout"
	"storefront/internal/middleware"
	"storefront/internal/models"
)

type startCheckoutRequest struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress" binding:"required"`
	BuyNow          *models.CartItem       `json:"buyNow"`
}

type confirmCheckoutRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

type cancelCheckoutRequest struct {
	RazorpayOrderID string `json:"razorpay_order_id"`
	Reason          string `json:"reason"`
}

// StartCheckout prices the buyer's cart (or buy-now line) and returns the
// gateway order the payment widget is opened with.
func StartCheckout(svc CheckoutService, keyID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/checkout"
		defer handlePanic(c, route)

		var req startCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		result, err := svc.Start(ctx, checkout.StartInput{
			UserID:          middleware.UserID(c),
			ShippingAddress: req.ShippingAddress,
			BuyNow:          req.BuyNow,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"razorpayOrderId": result.GatewayOrder.ID,
			"amount":          result.GatewayOrder.Amount,
			"currency":        result.GatewayOrder.Currency,
			"receipt":         result.Receipt,
			"keyId":           keyID,
			"source":          result.Source,
			"quote":           result.Quote,
		})
	}
}

func ConfirmCheckout(svc CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/checkout/confirm"
		defer handlePanic(c, route)

		var req confirmCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		order, err := svc.Confirm(ctx, checkout.ConfirmInput{
			UserID:         middleware.UserID(c),
			GatewayOrderID: req.RazorpayOrderID,
			PaymentID:      req.RazorpayPaymentID,
			Signature:      req.RazorpaySignature,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"orderId": order.ID.Hex(),
			"status":  order.Status,
			"order":   order,
		})
	}
}

// CancelCheckout acknowledges a dismissed or failed payment widget.
func CancelCheckout(svc CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/checkout/cancel"
		defer handlePanic(c, route)

		var req cancelCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		svc.Cancel(c.Request.Context(), checkout.CancelInput{
			UserID:         middleware.UserID(c),
			GatewayOrderID: req.RazorpayOrderID,
			Reason:         req.Reason,
		})
		c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
	}
}

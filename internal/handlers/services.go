package handlers

import (
	"context"

	"storefront/internal/checkout"
	"storefront/internal/models"
	"storefront/internal/orders"
	"storefront/internal/payment"
)

type PaymentOrderCreator interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (payment.GatewayOrder, error)
}

type WebhookReconciler interface {
	Reconcile(ctx context.Context, event payment.Event) (orders.Outcome, error)
}

type CheckoutService interface {
	Start(ctx context.Context, in checkout.StartInput) (checkout.StartResult, error)
	Confirm(ctx context.Context, in checkout.ConfirmInput) (models.Order, error)
	Cancel(ctx context.Context, in checkout.CancelInput)
	Cart(ctx context.Context, userID string) (models.Cart, error)
	UpdateCart(ctx context.Context, userID string, items []models.CartItem) (models.Cart, error)
}

type OrderService interface {
	GetForUser(ctx context.Context, userID, id string) (models.Order, error)
	ListForUser(ctx context.Context, userID string, page, limit int64) ([]models.Order, int64, error)
	List(ctx context.Context, status models.OrderStatus, page, limit int64) ([]models.Order, int64, error)
	Advance(ctx context.Context, id string, target models.OrderStatus) (models.Order, bool, error)
}

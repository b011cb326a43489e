// Package checkout runs the buyer's side of a payment: pricing the cart,
// issuing a gateway order, and turning a verified payment into an order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"storefront/internal/apperr"
	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/orders"
	"storefront/internal/payment"
)

type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (payment.GatewayOrder, error)
}

type SessionStore interface {
	Insert(ctx context.Context, session models.CheckoutSession) error
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (models.CheckoutSession, error)
	MarkCompleted(ctx context.Context, gatewayOrderID, orderID string, at time.Time) error
}

type CartStore interface {
	Get(ctx context.Context, userID string) (models.Cart, error)
	Replace(ctx context.Context, userID string, items []models.CartItem, at time.Time) error
	Clear(ctx context.Context, userID string, at time.Time) error
}

type Catalog interface {
	FindActiveByIDs(ctx context.Context, ids []string) (map[string]models.Product, error)
}

type OrderCreator interface {
	Create(ctx context.Context, in orders.NewOrder) (models.Order, bool, error)
}

type Config struct {
	// KeySecret verifies the widget's payment signature.
	KeySecret             string
	Currency              string
	ShippingCharge        float64
	FreeShippingThreshold float64
	SessionTTL            time.Duration
}

type Deps struct {
	Gateway  Gateway
	Sessions SessionStore
	Carts    CartStore
	Catalog  Catalog
	Orders   OrderCreator
}

type Service struct {
	cfg       Config
	deps      Deps
	publisher notify.Publisher
	now       func() time.Time
}

type Option func(*Service)

func WithPublisher(publisher notify.Publisher) Option {
	return func(s *Service) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(cfg Config, deps Deps, opts ...Option) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	s := &Service{
		cfg:       cfg,
		deps:      deps,
		publisher: notify.Nop{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type StartInput struct {
	UserID          string
	ShippingAddress models.ShippingAddress
	// BuyNow, when set, checks out this single line instead of the cart.
	BuyNow *models.CartItem
}

type StartResult struct {
	GatewayOrder payment.GatewayOrder
	Quote        Quote
	Receipt      string
	Source       models.CheckoutSource
}

// ValidateAddress requires every address field to be non-blank.
func ValidateAddress(addr models.ShippingAddress) error {
	fields := []struct {
		name  string
		value string
	}{
		{"fullName", addr.FullName},
		{"phone", addr.Phone},
		{"addressLine", addr.AddressLine},
		{"city", addr.City},
		{"state", addr.State},
		{"pincode", addr.Pincode},
	}
	for _, field := range fields {
		if strings.TrimSpace(field.value) == "" {
			return apperr.Validation("shippingAddress."+field.name, "is required")
		}
	}
	return nil
}

// Start prices the checkout and issues a gateway order for its total.
// Nothing is written unless the gateway order exists.
func (s *Service) Start(ctx context.Context, in StartInput) (StartResult, error) {
	ctx, span := otel.Tracer("checkout").Start(ctx, "Service.Start")
	defer span.End()

	if err := ValidateAddress(in.ShippingAddress); err != nil {
		return StartResult{}, err
	}

	source := models.SourceCart
	var lines []models.CartItem
	if in.BuyNow != nil {
		source = models.SourceBuyNow
		if strings.TrimSpace(in.BuyNow.ProductID) == "" {
			return StartResult{}, apperr.Validation("buyNow.productId", "is required")
		}
		lines = []models.CartItem{*in.BuyNow}
	} else {
		cart, err := s.deps.Carts.Get(ctx, in.UserID)
		if err != nil {
			return StartResult{}, &apperr.PersistenceError{Op: "load cart", Err: err}
		}
		lines = cart.Items
	}
	if len(lines) == 0 {
		return StartResult{}, apperr.Validation("cart", "is empty")
	}

	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.deps.Catalog.FindActiveByIDs(ctx, ids)
	if err != nil {
		return StartResult{}, &apperr.PersistenceError{Op: "load products", Err: err}
	}

	quote, err := priceLines(lines, products, s.cfg.ShippingCharge, s.cfg.FreeShippingThreshold)
	if err != nil {
		return StartResult{}, err
	}
	amountMinor, err := payment.ToMinorUnits(quote.TotalAmount)
	if err != nil {
		return StartResult{}, err
	}

	receipt := payment.NewReceipt()
	gatewayOrder, err := s.deps.Gateway.CreateOrder(ctx, amountMinor, s.cfg.Currency, receipt)
	if err != nil {
		log.Printf("[CHECKOUT] [ERROR] gateway order for user %s failed: %v", in.UserID, err)
		return StartResult{}, err
	}
	span.SetAttributes(
		attribute.String("razorpay.order_id", gatewayOrder.ID),
		attribute.Int64("checkout.amount_minor", amountMinor),
	)

	now := s.now()
	session := models.CheckoutSession{
		RazorpayOrderID: gatewayOrder.ID,
		UserID:          in.UserID,
		Source:          source,
		Items:           quote.Items,
		ShippingAddress: in.ShippingAddress,
		Subtotal:        quote.Subtotal,
		ShippingCharge:  quote.ShippingCharge,
		TotalAmount:     quote.TotalAmount,
		AmountMinor:     amountMinor,
		Currency:        gatewayOrder.Currency,
		Receipt:         receipt,
		State:           models.CheckoutOpen,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.cfg.SessionTTL),
	}
	if err := s.deps.Sessions.Insert(ctx, session); err != nil {
		return StartResult{}, &apperr.PersistenceError{Op: "save checkout", Err: err}
	}

	log.Printf("[CHECKOUT] [INFO] gateway order %s issued for user %s, amount %d", gatewayOrder.ID, in.UserID, amountMinor)
	return StartResult{
		GatewayOrder: gatewayOrder,
		Quote:        quote,
		Receipt:      receipt,
		Source:       source,
	}, nil
}

type ConfirmInput struct {
	UserID         string
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

// Confirm verifies the widget's payment signature and creates the order
// from the checkout snapshot. The cart is cleared only after the order is
// stored.
func (s *Service) Confirm(ctx context.Context, in ConfirmInput) (models.Order, error) {
	ctx, span := otel.Tracer("checkout").Start(ctx, "Service.Confirm")
	defer span.End()
	span.SetAttributes(attribute.String("razorpay.order_id", in.GatewayOrderID))

	if s.cfg.KeySecret == "" {
		return models.Order{}, fmt.Errorf("payment key secret: %w", apperr.ErrMisconfigured)
	}
	switch {
	case in.GatewayOrderID == "":
		return models.Order{}, apperr.Validation("razorpay_order_id", "is required")
	case in.PaymentID == "":
		return models.Order{}, apperr.Validation("razorpay_payment_id", "is required")
	case in.Signature == "":
		return models.Order{}, apperr.Validation("razorpay_signature", "is required")
	}

	if !payment.VerifyPaymentSignature(s.cfg.KeySecret, in.GatewayOrderID, in.PaymentID, in.Signature) {
		log.Printf("[CHECKOUT] [WARN] signature mismatch for gateway order %s, payment %s", in.GatewayOrderID, in.PaymentID)
		return models.Order{}, apperr.ErrSignatureMismatch
	}

	session, err := s.deps.Sessions.FindByGatewayOrderID(ctx, in.GatewayOrderID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.publisher.Publish(ctx, notify.Notification{
				Type:           notify.TypePaymentUnmatched,
				GatewayOrderID: in.GatewayOrderID,
				PaymentID:      in.PaymentID,
				UserID:         in.UserID,
				Detail:         "checkout session missing at confirmation",
				At:             s.now(),
			})
		}
		log.Printf("[CHECKOUT] [ERROR] no checkout for paid gateway order %s, payment %s: %v", in.GatewayOrderID, in.PaymentID, err)
		return models.Order{}, &apperr.PersistenceError{Op: "load checkout", PaymentID: in.PaymentID, Err: err}
	}
	if session.UserID != in.UserID {
		log.Printf("[CHECKOUT] [WARN] user %s tried to confirm checkout of another user, gateway order %s", in.UserID, in.GatewayOrderID)
		return models.Order{}, apperr.ErrForbidden
	}

	order, created, err := s.deps.Orders.Create(ctx, orders.NewOrder{
		UserID:          session.UserID,
		Items:           session.Items,
		ShippingAddress: session.ShippingAddress,
		Subtotal:        session.Subtotal,
		ShippingCharge:  session.ShippingCharge,
		TotalAmount:     session.TotalAmount,
		Currency:        session.Currency,
		GatewayOrderID:  in.GatewayOrderID,
		PaymentID:       in.PaymentID,
		Signature:       in.Signature,
	})
	if err != nil {
		log.Printf("[CHECKOUT] [ERROR] order not stored for payment %s: %v", in.PaymentID, err)
		return models.Order{}, err
	}
	if !created {
		return order, nil
	}

	now := s.now()
	if session.Source == models.SourceCart {
		if err := s.deps.Carts.Clear(ctx, session.UserID, now); err != nil {
			log.Printf("[CHECKOUT] [WARN] cart of user %s not cleared after order %s: %v", session.UserID, order.ID.Hex(), err)
		}
	}
	if err := s.deps.Sessions.MarkCompleted(ctx, in.GatewayOrderID, order.ID.Hex(), now); err != nil {
		log.Printf("[CHECKOUT] [WARN] checkout %s not marked completed: %v", in.GatewayOrderID, err)
	}

	s.publisher.Publish(ctx, notify.Notification{
		Type:           notify.TypeOrderConfirmed,
		OrderID:        order.ID.Hex(),
		GatewayOrderID: in.GatewayOrderID,
		PaymentID:      in.PaymentID,
		UserID:         session.UserID,
		Status:         string(order.Status),
		At:             now,
	})
	return order, nil
}

type CancelInput struct {
	UserID         string
	GatewayOrderID string
	Reason         string
}

// Cancel records that the buyer dismissed the widget or the payment
// failed in it. No order exists yet, so nothing is undone.
func (s *Service) Cancel(ctx context.Context, in CancelInput) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "dismissed"
	}
	log.Printf("[CHECKOUT] [INFO] user %s abandoned gateway order %s: %s", in.UserID, in.GatewayOrderID, reason)
	s.publisher.Publish(ctx, notify.Notification{
		Type:           notify.TypeCheckoutAbandon,
		GatewayOrderID: in.GatewayOrderID,
		UserID:         in.UserID,
		Detail:         reason,
		At:             s.now(),
	})
}

func (s *Service) Cart(ctx context.Context, userID string) (models.Cart, error) {
	cart, err := s.deps.Carts.Get(ctx, userID)
	if err != nil {
		return models.Cart{}, &apperr.PersistenceError{Op: "load cart", Err: err}
	}
	return cart, nil
}

// UpdateCart replaces the cart lines after checking every product is
// purchasable.
func (s *Service) UpdateCart(ctx context.Context, userID string, items []models.CartItem) (models.Cart, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return models.Cart{}, apperr.Validation("quantity", "must be greater than 0")
		}
		ids = append(ids, item.ProductID)
	}

	if len(ids) > 0 {
		products, err := s.deps.Catalog.FindActiveByIDs(ctx, ids)
		if err != nil {
			return models.Cart{}, &apperr.PersistenceError{Op: "load products", Err: err}
		}
		for _, id := range ids {
			if _, ok := products[id]; !ok {
				return models.Cart{}, productNotFoundError{ProductID: id}
			}
		}
	}

	now := s.now()
	if err := s.deps.Carts.Replace(ctx, userID, items, now); err != nil {
		return models.Cart{}, &apperr.PersistenceError{Op: "save cart", Err: err}
	}
	return models.Cart{UserID: userID, Items: append([]models.CartItem{}, items...), UpdatedAt: now}, nil
}

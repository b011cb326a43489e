// Package orders owns the order document after payment: creating it once
// per gateway order, advancing its status, and folding gateway webhooks
// into it.
package orders

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/apperr"
	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/notify"
)

type Store interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (models.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (models.Order, error)
	ListByUser(ctx context.Context, userID string, page, limit int64) ([]models.Order, int64, error)
	List(ctx context.Context, status models.OrderStatus, page, limit int64) ([]models.Order, int64, error)
	Apply(ctx context.Context, id primitive.ObjectID, t database.Transition) (bool, error)
}

type Service struct {
	store     Store
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

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: notify.Nop{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOrder is everything known about a paid checkout. Prices are final.
type NewOrder struct {
	UserID          string
	Items           []models.OrderItem
	ShippingAddress models.ShippingAddress
	Subtotal        float64
	ShippingCharge  float64
	TotalAmount     float64
	Currency        string
	GatewayOrderID  string
	PaymentID       string
	Signature       string
}

func (in NewOrder) validate() error {
	switch {
	case strings.TrimSpace(in.UserID) == "":
		return apperr.Validation("userId", "is required")
	case len(in.Items) == 0:
		return apperr.Validation("items", "must not be empty")
	case in.GatewayOrderID == "":
		return apperr.Validation("razorpayOrderId", "is required")
	case in.PaymentID == "":
		return apperr.Validation("paymentId", "is required")
	case in.TotalAmount <= 0:
		return apperr.Validation("totalAmount", "must be greater than 0")
	}
	return nil
}

// Create persists a verified order in CONFIRMED. If an order already
// exists for the gateway order, that order is returned with created=false.
func (s *Service) Create(ctx context.Context, in NewOrder) (models.Order, bool, error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "Service.Create")
	defer span.End()
	span.SetAttributes(attribute.String("razorpay.order_id", in.GatewayOrderID))

	if err := in.validate(); err != nil {
		return models.Order{}, false, err
	}

	now := s.now()
	order := models.Order{
		UserID:            in.UserID,
		Items:             append([]models.OrderItem(nil), in.Items...),
		ShippingAddress:   in.ShippingAddress,
		Subtotal:          in.Subtotal,
		ShippingCharge:    in.ShippingCharge,
		TotalAmount:       in.TotalAmount,
		Currency:          in.Currency,
		Status:            models.StatusConfirmed,
		StatusHistory:     []models.StatusEntry{{Status: models.StatusConfirmed, Timestamp: now}},
		PaymentStatus:     models.PaymentCaptured,
		PaymentID:         in.PaymentID,
		RazorpayOrderID:   in.GatewayOrderID,
		RazorpaySignature: in.Signature,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.store.Insert(ctx, &order)
	if errors.Is(err, database.ErrDuplicate) {
		existing, findErr := s.store.FindByGatewayOrderID(ctx, in.GatewayOrderID)
		if findErr != nil {
			return models.Order{}, false, recordError(span, &apperr.PersistenceError{Op: "load existing order", PaymentID: in.PaymentID, Err: findErr})
		}
		log.Printf("[ORDER] [INFO] order for %s already exists: %s", in.GatewayOrderID, existing.ID.Hex())
		return existing, false, nil
	}
	if err != nil {
		return models.Order{}, false, recordError(span, &apperr.PersistenceError{Op: "create order", PaymentID: in.PaymentID, Err: err})
	}

	log.Printf("[ORDER] [INFO] order %s created for gateway order %s", order.ID.Hex(), in.GatewayOrderID)
	return order, true, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Order, error) {
	order, err := s.store.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Order{}, apperr.ErrOrderNotFound
	}
	if err != nil {
		return models.Order{}, &apperr.PersistenceError{Op: "load order", Err: err}
	}
	return order, nil
}

// GetForUser returns the order only if userID owns it. Someone else's
// order reads as not found.
func (s *Service) GetForUser(ctx context.Context, userID, id string) (models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if order.UserID != userID {
		return models.Order{}, apperr.ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string, page, limit int64) ([]models.Order, int64, error) {
	orders, total, err := s.store.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, &apperr.PersistenceError{Op: "list orders", Err: err}
	}
	return orders, total, nil
}

func (s *Service) List(ctx context.Context, status models.OrderStatus, page, limit int64) ([]models.Order, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, apperr.Validation("status", "is not a known order status")
	}
	orders, total, err := s.store.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, &apperr.PersistenceError{Op: "list orders", Err: err}
	}
	return orders, total, nil
}

// Advance moves an order forward to target on behalf of an admin.
// Targets at or behind the current status change nothing.
func (s *Service) Advance(ctx context.Context, id string, target models.OrderStatus) (models.Order, bool, error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "Service.Advance")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id), attribute.String("order.target", string(target)))

	if !target.Valid() {
		return models.Order{}, false, apperr.Validation("status", "is not a known order status")
	}
	if !target.AtLeast(models.StatusOrderAccepted) {
		return models.Order{}, false, &apperr.TransitionError{To: string(target)}
	}

	order, err := s.Get(ctx, id)
	if err != nil {
		return models.Order{}, false, err
	}
	if order.Status.Terminal() && target != order.Status {
		return models.Order{}, false, &apperr.TransitionError{From: string(order.Status), To: string(target)}
	}
	if order.Status.AtLeast(target) {
		return order, false, nil
	}

	changed, err := s.store.Apply(ctx, order.ID, database.Transition{Status: target, At: s.now()})
	if err != nil {
		return models.Order{}, false, recordError(span, &apperr.PersistenceError{Op: "advance order", Err: err})
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return models.Order{}, false, err
	}
	if changed {
		log.Printf("[ORDER] [INFO] order %s moved %s -> %s", id, order.Status, target)
		s.publisher.Publish(ctx, notify.Notification{
			Type:           notify.TypeOrderStatus,
			OrderID:        id,
			GatewayOrderID: updated.RazorpayOrderID,
			UserID:         updated.UserID,
			Status:         string(target),
			At:             s.now(),
		})
	}
	return updated, changed, nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

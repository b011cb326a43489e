package orders

import (
	"context"
	"errors"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"storefront/internal/apperr"
	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/payment"
)

// Outcome says what a webhook event did to the local order.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeAlreadyApplied Outcome = "already_applied"
	OutcomeOrderNotFound  Outcome = "order_not_found"
	OutcomeIgnored        Outcome = "ignored"
)

// Reconcile folds a verified webhook event into the matching order. It is
// safe to call any number of times with the same event. Only store
// failures are returned as errors; a missing order is an outcome.
func (s *Service) Reconcile(ctx context.Context, event payment.Event) (Outcome, error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "Service.Reconcile")
	defer span.End()
	span.SetAttributes(
		attribute.String("webhook.event", event.Name()),
		attribute.String("razorpay.order_id", event.GatewayOrderID()),
	)

	var (
		outcome Outcome
		err     error
	)
	switch e := event.(type) {
	case payment.PaymentCaptured:
		outcome, err = s.settle(ctx, e.Name(), e.OrderID, e.PaymentID)
	case payment.OrderPaid:
		outcome, err = s.settle(ctx, e.Name(), e.OrderID, e.PaymentID)
	case payment.PaymentFailed:
		outcome, err = s.markFailed(ctx, e)
	case payment.RefundProcessed:
		outcome, err = s.markRefunded(ctx, e)
	default:
		log.Printf("[WEBHOOK] [INFO] ignoring event %q", event.Name())
		outcome = OutcomeIgnored
	}
	if err != nil {
		return outcome, recordError(span, err)
	}
	span.SetAttributes(attribute.String("webhook.outcome", string(outcome)))
	return outcome, nil
}

func (s *Service) lookup(ctx context.Context, gatewayOrderID, paymentID string) (models.Order, bool, error) {
	order, err := s.store.FindByGatewayOrderID(ctx, gatewayOrderID)
	if errors.Is(err, database.ErrNotFound) {
		return models.Order{}, false, nil
	}
	if err != nil {
		return models.Order{}, false, &apperr.PersistenceError{Op: "find order", PaymentID: paymentID, Err: err}
	}
	return order, true, nil
}

// settle handles captured and paid events. The order is not created here:
// checkout confirmation is the only creator.
func (s *Service) settle(ctx context.Context, eventName, gatewayOrderID, paymentID string) (Outcome, error) {
	if gatewayOrderID == "" {
		log.Printf("[WEBHOOK] [WARN] %s without an order id, payment %s", eventName, paymentID)
		return OutcomeIgnored, nil
	}

	order, found, err := s.lookup(ctx, gatewayOrderID, paymentID)
	if err != nil {
		return "", err
	}
	if !found {
		log.Printf("[WEBHOOK] [INFO] %s for %s before any order exists, payment %s", eventName, gatewayOrderID, paymentID)
		s.publisher.Publish(ctx, notify.Notification{
			Type:           notify.TypePaymentUnmatched,
			GatewayOrderID: gatewayOrderID,
			PaymentID:      paymentID,
			Detail:         eventName,
			At:             s.now(),
		})
		return OutcomeOrderNotFound, nil
	}

	recordPaymentID := ""
	if order.PaymentID == "" {
		recordPaymentID = paymentID
	}

	applied := false
	if !order.Status.AtLeast(models.StatusConfirmed) {
		changed, err := s.store.Apply(ctx, order.ID, database.Transition{
			Status:    models.StatusConfirmed,
			PaymentID: recordPaymentID,
			At:        s.now(),
		})
		if err != nil {
			return "", &apperr.PersistenceError{Op: "confirm order", PaymentID: paymentID, Err: err}
		}
		if changed {
			applied = true
			recordPaymentID = ""
			log.Printf("[WEBHOOK] [INFO] order %s confirmed by %s", order.ID.Hex(), eventName)
			s.publisher.Publish(ctx, notify.Notification{
				Type:           notify.TypeOrderStatus,
				OrderID:        order.ID.Hex(),
				GatewayOrderID: gatewayOrderID,
				PaymentID:      paymentID,
				UserID:         order.UserID,
				Status:         string(models.StatusConfirmed),
				At:             s.now(),
			})
		}
	}

	if order.PaymentStatus.Rank() < models.PaymentCaptured.Rank() {
		changed, err := s.store.Apply(ctx, order.ID, database.Transition{
			PaymentStatus: models.PaymentCaptured,
			PaymentID:     recordPaymentID,
			At:            s.now(),
		})
		if err != nil {
			return "", &apperr.PersistenceError{Op: "capture payment", PaymentID: paymentID, Err: err}
		}
		applied = applied || changed
	}

	if !applied {
		return OutcomeAlreadyApplied, nil
	}
	return OutcomeApplied, nil
}

func (s *Service) markFailed(ctx context.Context, e payment.PaymentFailed) (Outcome, error) {
	log.Printf("[WEBHOOK] [WARN] payment %s failed for %s: %s", e.PaymentID, e.OrderID, e.Reason)
	s.publisher.Publish(ctx, notify.Notification{
		Type:           notify.TypePaymentFailed,
		GatewayOrderID: e.OrderID,
		PaymentID:      e.PaymentID,
		Detail:         e.Reason,
		At:             s.now(),
	})
	if e.OrderID == "" {
		return OutcomeIgnored, nil
	}

	order, found, err := s.lookup(ctx, e.OrderID, e.PaymentID)
	if err != nil {
		return "", err
	}
	if !found {
		return OutcomeOrderNotFound, nil
	}
	// A failed attempt after a captured one (a retry on another card) says
	// nothing about the order.
	if order.Status.AtLeast(models.StatusConfirmed) {
		return OutcomeAlreadyApplied, nil
	}

	changed, err := s.store.Apply(ctx, order.ID, database.Transition{
		PaymentStatus: models.PaymentFailed,
		At:            s.now(),
	})
	if err != nil {
		return "", &apperr.PersistenceError{Op: "mark payment failed", PaymentID: e.PaymentID, Err: err}
	}
	if !changed {
		return OutcomeAlreadyApplied, nil
	}
	return OutcomeApplied, nil
}

func (s *Service) markRefunded(ctx context.Context, e payment.RefundProcessed) (Outcome, error) {
	if e.OrderID == "" {
		log.Printf("[WEBHOOK] [WARN] refund %s without an order id", e.RefundID)
		return OutcomeIgnored, nil
	}

	order, found, err := s.lookup(ctx, e.OrderID, e.PaymentID)
	if err != nil {
		return "", err
	}
	if !found {
		log.Printf("[WEBHOOK] [WARN] refund %s for unknown order %s", e.RefundID, e.OrderID)
		return OutcomeOrderNotFound, nil
	}

	changed, err := s.store.Apply(ctx, order.ID, database.Transition{
		PaymentStatus: models.PaymentRefunded,
		RefundID:      e.RefundID,
		At:            s.now(),
	})
	if err != nil {
		return "", &apperr.PersistenceError{Op: "mark refunded", PaymentID: e.PaymentID, Err: err}
	}
	if !changed {
		return OutcomeAlreadyApplied, nil
	}

	log.Printf("[WEBHOOK] [INFO] order %s refunded, refund %s", order.ID.Hex(), e.RefundID)
	s.publisher.Publish(ctx, notify.Notification{
		Type:           notify.TypeRefundProcessed,
		OrderID:        order.ID.Hex(),
		GatewayOrderID: e.OrderID,
		PaymentID:      e.PaymentID,
		UserID:         order.UserID,
		Detail:         e.RefundID,
		At:             s.now(),
	})
	return OutcomeApplied, nil
}

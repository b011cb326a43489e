package payment

import (
	"encoding/json"
	"fmt"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
)

// Event is a verified webhook notification. The concrete type tells the
// caller which transition, if any, applies.
type Event interface {
	Name() string
	GatewayOrderID() string
}

type PaymentCaptured struct {
	OrderID   string
	PaymentID string
	Amount    int64
}

func (e PaymentCaptured) Name() string           { return EventPaymentCaptured }
func (e PaymentCaptured) GatewayOrderID() string { return e.OrderID }

type OrderPaid struct {
	OrderID   string
	PaymentID string
	Amount    int64
}

func (e OrderPaid) Name() string           { return EventOrderPaid }
func (e OrderPaid) GatewayOrderID() string { return e.OrderID }

type PaymentFailed struct {
	OrderID   string
	PaymentID string
	Reason    string
}

func (e PaymentFailed) Name() string           { return EventPaymentFailed }
func (e PaymentFailed) GatewayOrderID() string { return e.OrderID }

type RefundProcessed struct {
	OrderID   string
	PaymentID string
	RefundID  string
	Amount    int64
}

func (e RefundProcessed) Name() string           { return EventRefundProcessed }
func (e RefundProcessed) GatewayOrderID() string { return e.OrderID }

// UnknownEvent carries any event type this service does not act on.
type UnknownEvent struct {
	Type    string
	OrderID string
}

func (e UnknownEvent) Name() string           { return e.Type }
func (e UnknownEvent) GatewayOrderID() string { return e.OrderID }

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity orderEntity `json:"entity"`
		} `json:"order"`
		Refund *struct {
			Entity refundEntity `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	ErrorDescription string `json:"error_description"`
}

type orderEntity struct {
	ID         string `json:"id"`
	AmountPaid int64  `json:"amount_paid"`
}

type refundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

// ParseWebhookEvent decodes a webhook body. It must only be called after
// the body's signature has been verified.
func ParseWebhookEvent(body []byte) (Event, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if envelope.Event == "" {
		return nil, fmt.Errorf("decode webhook: missing event type")
	}

	var payment paymentEntity
	if envelope.Payload.Payment != nil {
		payment = envelope.Payload.Payment.Entity
	}
	orderID := payment.OrderID
	if orderID == "" && envelope.Payload.Order != nil {
		orderID = envelope.Payload.Order.Entity.ID
	}

	switch envelope.Event {
	case EventPaymentCaptured:
		return PaymentCaptured{OrderID: orderID, PaymentID: payment.ID, Amount: payment.Amount}, nil
	case EventOrderPaid:
		amount := payment.Amount
		if amount == 0 && envelope.Payload.Order != nil {
			amount = envelope.Payload.Order.Entity.AmountPaid
		}
		return OrderPaid{OrderID: orderID, PaymentID: payment.ID, Amount: amount}, nil
	case EventPaymentFailed:
		return PaymentFailed{OrderID: orderID, PaymentID: payment.ID, Reason: payment.ErrorDescription}, nil
	case EventRefundProcessed:
		refund := RefundProcessed{OrderID: orderID, PaymentID: payment.ID}
		if envelope.Payload.Refund != nil {
			refund.RefundID = envelope.Payload.Refund.Entity.ID
			refund.Amount = envelope.Payload.Refund.Entity.Amount
			if refund.PaymentID == "" {
				refund.PaymentID = envelope.Payload.Refund.Entity.PaymentID
			}
		}
		return refund, nil
	default:
		return UnknownEvent{Type: envelope.Event, OrderID: orderID}, nil
	}
}

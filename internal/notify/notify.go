// Package notify publishes order and payment notifications for the email
// sender and the support desk. Publishing never blocks or fails a request.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TypeOrderConfirmed   = "order.confirmed"
	TypeOrderStatus      = "order.status_changed"
	TypePaymentUnmatched = "payment.unmatched"
	TypePaymentFailed    = "payment.failed"
	TypeRefundProcessed  = "refund.processed"
	TypeCheckoutAbandon  = "checkout.cancelled"
)

type Notification struct {
	Type           string    `json:"type"`
	OrderID        string    `json:"orderId,omitempty"`
	GatewayOrderID string    `json:"razorpayOrderId,omitempty"`
	PaymentID      string    `json:"paymentId,omitempty"`
	UserID         string    `json:"userId,omitempty"`
	Status         string    `json:"status,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	At             time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, n Notification)
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Publish(context.Context, Notification) {}

// KafkaPublisher writes notifications asynchronously to one topic, keyed
// by gateway order so events for the same payment stay ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 50 * time.Millisecond,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.Printf("[NOTIFY] [ERROR] failed to deliver %d notification(s): %v", len(messages), err)
				}
			},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, n Notification) {
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	value, err := json.Marshal(n)
	if err != nil {
		log.Printf("[NOTIFY] [ERROR] encode %s: %v", n.Type, err)
		return
	}

	key := n.GatewayOrderID
	if key == "" {
		key = n.OrderID
	}
	message := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  n.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(n.Type)},
		},
	}
	// Async writers return immediately; delivery errors reach Completion.
	if err := p.writer.WriteMessages(context.WithoutCancel(ctx), message); err != nil {
		log.Printf("[NOTIFY] [ERROR] publish %s: %v", n.Type, err)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Recorder keeps published notifications in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Publish(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// Types returns the type of every recorded notification in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.sent))
	for _, n := range r.sent {
		types = append(types, n.Type)
	}
	return types
}

package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookEvent(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Event
	}{
		{
			name: "payment captured",
			body: `{"entity":"event","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_abc","amount":54800,"status":"captured"}}}}`,
			want: PaymentCaptured{OrderID: "order_abc", PaymentID: "pay_1", Amount: 54800},
		},
		{
			name: "order paid takes order id from order entity",
			body: `{"event":"order.paid","payload":{"order":{"entity":{"id":"order_abc","amount_paid":54800}}}}`,
			want: OrderPaid{OrderID: "order_abc", Amount: 54800},
		},
		{
			name: "order paid with payment entity",
			body: `{"event":"order.paid","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_abc","amount":100}},"order":{"entity":{"id":"order_abc"}}}}`,
			want: OrderPaid{OrderID: "order_abc", PaymentID: "pay_1", Amount: 100},
		},
		{
			name: "payment failed",
			body: `{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2","order_id":"order_x","error_description":"card declined"}}}}`,
			want: PaymentFailed{OrderID: "order_x", PaymentID: "pay_2", Reason: "card declined"},
		},
		{
			name: "refund processed",
			body: `{"event":"refund.processed","payload":{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_3","amount":500}},"payment":{"entity":{"id":"pay_3","order_id":"order_y"}}}}`,
			want: RefundProcessed{OrderID: "order_y", PaymentID: "pay_3", RefundID: "rfnd_1", Amount: 500},
		},
		{
			name: "unknown event",
			body: `{"event":"subscription.charged","payload":{}}`,
			want: UnknownEvent{Type: "subscription.charged"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWebhookEvent([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWebhookEventRejectsMalformedBodies(t *testing.T) {
	for _, body := range []string{``, `not json`, `{"payload":{}}`, `[]`} {
		_, err := ParseWebhookEvent([]byte(body))
		assert.Error(t, err, body)
	}
}

package models

import "time"

// CheckoutSource says where the checkout lines came from.
type CheckoutSource string

const (
	SourceCart   CheckoutSource = "cart"
	SourceBuyNow CheckoutSource = "buy_now"
)

type CheckoutState string

const (
	CheckoutOpen      CheckoutState = "open"
	CheckoutCompleted CheckoutState = "completed"
)

// CheckoutSession is the priced quote a gateway order was issued for. It
// is keyed by the gateway order ID and turned into an Order only after
// the payment signature checks out.
type CheckoutSession struct {
	RazorpayOrderID string          `bson:"_id" json:"razorpayOrderId"`
	UserID          string          `bson:"userId" json:"userId"`
	Source          CheckoutSource  `bson:"source" json:"source"`
	Items           []OrderItem     `bson:"items" json:"items"`
	ShippingAddress ShippingAddress `bson:"shippingAddress" json:"shippingAddress"`
	Subtotal        float64         `bson:"subtotal" json:"subtotal"`
	ShippingCharge  float64         `bson:"shippingCharge" json:"shippingCharge"`
	TotalAmount     float64         `bson:"totalAmount" json:"totalAmount"`
	AmountMinor     int64           `bson:"amountMinor" json:"amountMinor"`
	Currency        string          `bson:"currency" json:"currency"`
	Receipt         string          `bson:"receipt" json:"receipt"`
	State           CheckoutState   `bson:"state" json:"state"`
	OrderID         string          `bson:"orderId,omitempty" json:"orderId,omitempty"`
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt"`
	ExpiresAt       time.Time       `bson:"expiresAt" json:"expiresAt"`
}

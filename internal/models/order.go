package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderItem is a line of a placed order. Price is the unit price at the
// moment of purchase and is never recomputed.
type OrderItem struct {
	ProductID string  `bson:"productId" json:"productId"`
	Name      string  `bson:"name" json:"name"`
	Price     float64 `bson:"price" json:"price"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Image     string  `bson:"image,omitempty" json:"image,omitempty"`
}

// ShippingAddress is copied onto the order at checkout.
type ShippingAddress struct {
	FullName    string `bson:"fullName" json:"fullName" binding:"required"`
	Phone       string `bson:"phone" json:"phone" binding:"required"`
	AddressLine string `bson:"addressLine" json:"addressLine" binding:"required"`
	City        string `bson:"city" json:"city" binding:"required"`
	State       string `bson:"state" json:"state" binding:"required"`
	Pincode     string `bson:"pincode" json:"pincode" binding:"required"`
}

// StatusEntry is one element of the append-only status history.
type StatusEntry struct {
	Status    OrderStatus `bson:"status" json:"status"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
}

// Order defines the persisted order document.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          string             `bson:"userId" json:"userId"`
	Items           []OrderItem        `bson:"items" json:"items"`
	ShippingAddress ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	Subtotal        float64            `bson:"subtotal" json:"subtotal"`
	ShippingCharge  float64            `bson:"shippingCharge" json:"shippingCharge"`
	TotalAmount     float64            `bson:"totalAmount" json:"totalAmount"`
	Currency        string             `bson:"currency" json:"currency"`

	Status        OrderStatus   `bson:"status" json:"status"`
	StatusHistory []StatusEntry `bson:"statusHistory" json:"statusHistory"`

	PaymentStatus     PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	PaymentID         string        `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	RazorpayOrderID   string        `bson:"razorpayOrderId" json:"razorpayOrderId"`
	RazorpaySignature string        `bson:"razorpaySignature,omitempty" json:"-"`
	RefundID          string        `bson:"refundId,omitempty" json:"refundId,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Clone returns a deep copy so callers never share slices with a store.
func (o Order) Clone() Order {
	clone := o
	clone.Items = append([]OrderItem(nil), o.Items...)
	clone.StatusHistory = append([]StatusEntry(nil), o.StatusHistory...)
	return clone
}

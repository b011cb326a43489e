package models

// OrderStatus is the fulfilment milestone of an order.
type OrderStatus string

const (
	StatusOrderPlaced    OrderStatus = "Order Placed"
	StatusConfirmed      OrderStatus = "CONFIRMED"
	StatusOrderAccepted  OrderStatus = "Order Accepted"
	StatusPacked         OrderStatus = "Packed"
	StatusCouriered      OrderStatus = "Couriered"
	StatusShipped        OrderStatus = "Shipped"
	StatusOutForDelivery OrderStatus = "Out for Delivery"
	StatusDelivered      OrderStatus = "Delivered"
)

// statusPrecedence lists statuses from earliest to furthest. An order's
// status only ever moves to the right.
var statusPrecedence = []OrderStatus{
	StatusOrderPlaced,
	StatusConfirmed,
	StatusOrderAccepted,
	StatusPacked,
	StatusCouriered,
	StatusShipped,
	StatusOutForDelivery,
	StatusDelivered,
}

// Rank returns the precedence of s, or -1 for an unknown status.
func (s OrderStatus) Rank() int {
	for i, status := range statusPrecedence {
		if status == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Valid() bool {
	return s.Rank() >= 0
}

// AtLeast reports whether s is at or beyond other.
func (s OrderStatus) AtLeast(other OrderStatus) bool {
	return s.Rank() >= other.Rank()
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered
}

// StatusesBelow returns every status strictly before target.
func StatusesBelow(target OrderStatus) []OrderStatus {
	rank := target.Rank()
	if rank <= 0 {
		return nil
	}
	below := make([]OrderStatus, rank)
	copy(below, statusPrecedence[:rank])
	return below
}

// AllStatuses returns the statuses in precedence order.
func AllStatuses() []OrderStatus {
	all := make([]OrderStatus, len(statusPrecedence))
	copy(all, statusPrecedence)
	return all
}

// PaymentStatus tracks what the gateway has told us about the money,
// independently of fulfilment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentFailed   PaymentStatus = "failed"
	PaymentCaptured PaymentStatus = "captured"
	PaymentRefunded PaymentStatus = "refunded"
)

var paymentPrecedence = []PaymentStatus{
	PaymentPending,
	PaymentFailed,
	PaymentCaptured,
	PaymentRefunded,
}

func (s PaymentStatus) Rank() int {
	if s == "" {
		return 0
	}
	for i, status := range paymentPrecedence {
		if status == s {
			return i
		}
	}
	return -1
}

// PaymentStatusesBelow returns every payment status strictly before
// target. The empty value counts as pending.
func PaymentStatusesBelow(target PaymentStatus) []PaymentStatus {
	rank := target.Rank()
	if rank <= 0 {
		return nil
	}
	below := make([]PaymentStatus, 0, rank+1)
	below = append(below, "")
	below = append(below, paymentPrecedence[:rank]...)
	return below
}

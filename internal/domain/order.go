package domain

import "time"

// Order statuses are server-driven; the client only reads them.
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
)

// Payment methods accepted at checkout. The client records the choice; it
// never processes payment.
const (
	PaymentUPI            = "upi"
	PaymentNetBanking     = "netbanking"
	PaymentCashOnDelivery = "cash-on-delivery"
)

// PaymentMethods lists the accepted payment method identifiers.
var PaymentMethods = []string{PaymentUPI, PaymentNetBanking, PaymentCashOnDelivery}

// ValidPaymentMethod reports whether s is one of the accepted methods.
func ValidPaymentMethod(s string) bool {
	for _, m := range PaymentMethods {
		if s == m {
			return true
		}
	}
	return false
}

// OrderItem is one line of a placed order. Price is captured at submission
// time; this is the only place unit price is frozen rather than read live.
type OrderItem struct {
	ProductID string  `json:"product"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is immutable from the client's perspective once created.
type Order struct {
	ID              string      `json:"_id"`
	UserID          string      `json:"user,omitempty"`
	Items           []OrderItem `json:"cartItems"`
	TotalPrice      float64     `json:"totalPrice"`
	ShippingAddress string      `json:"shippingAddress"`
	PaymentMethod   string      `json:"paymentMethod"`
	Status          string      `json:"status"`
	CreatedAt       time.Time   `json:"createdAt"`
}

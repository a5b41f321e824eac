package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-storefront-orderflow/internal/cart"
)

// Status is the lifecycle state of an order.
type Status string

// Order statuses
const (
	StatusPendingPayment      Status = "pending_payment"
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusPaymentVerified     Status = "payment_verified"
	StatusProcessing          Status = "processing"
	StatusShipped             Status = "shipped"
	StatusDelivered           Status = "delivered"
	StatusCancelled           Status = "cancelled"
)

// Statuses lists the closed set in lifecycle order.
var Statuses = []Status{
	StatusPendingPayment,
	StatusPendingConfirmation,
	StatusPaymentVerified,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// ShippingAddress fields are all required before an order can be created.
type ShippingAddress struct {
	Street      string `json:"street" validate:"required"`
	City        string `json:"city" validate:"required"`
	Province    string `json:"province" validate:"required"`
	ZipCode     string `json:"zipCode" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
}

// Customer identifies the buyer towards the remote service. ID is the signed-in
// user the order belongs to.
type Customer struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Order is the record kept in the local order queue. Everything except Status and
// RemoteID is fixed at creation.
type Order struct {
	OrderRef        string          `json:"orderRef"`
	CreatedAt       time.Time       `json:"date"`
	Items           []cart.Item     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	Customer        *Customer       `json:"customer,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingFee     decimal.Decimal `json:"shippingFee"`
	PaymentFee      decimal.Decimal `json:"paymentFee"`
	Total           decimal.Decimal `json:"total"`
	Status          Status          `json:"status"`
	RemoteID        string          `json:"backendOrderId,omitempty"` // set only after a successful remote submission
}

// Synced reports whether the remote service has acknowledged the order.
func (o Order) Synced() bool {
	return o.RemoteID != ""
}

// OwnedBy reports whether the order was placed by userID.
func (o Order) OwnedBy(userID string) bool {
	return o.Customer != nil && o.Customer.ID != "" && o.Customer.ID == userID
}

// WithCustomer returns a copy of o carrying c.
func (o Order) WithCustomer(c Customer) Order {
	o.Customer = &c
	return o
}

// Patch lists the mutable fields of an order; zero values leave a field unchanged.
type Patch struct {
	Status   Status
	RemoteID string
}

// Apply returns o with the patch applied.
func (p Patch) Apply(o Order) Order {
	if p.Status != "" {
		o.Status = p.Status
	}
	if p.RemoteID != "" {
		o.RemoteID = p.RemoteID
	}
	return o
}

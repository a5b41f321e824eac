package orders

import (
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-storefront-orderflow/internal/cart"
	"github.com/imrishuroy/go-storefront-orderflow/internal/validation"
)

// DefaultShippingFee is the flat shipping charge applied to every order.
var DefaultShippingFee = decimal.RequireFromString("5.00")

// orderInput is validated in declaration order so the first failing field is reported.
type orderInput struct {
	Items           []cart.Item     `json:"items" validate:"required,min=1"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" validate:"required,oneof=gcash bank_transfer credit_card"`
}

// Factory turns a cart snapshot into an Order.
type Factory struct {
	validate    *validatorv10.Validate
	refs        *RefGenerator
	shippingFee decimal.Decimal
	nowFunc     func() time.Time
}

type FactoryOption func(*Factory)

// WithClock replaces the wall clock used for creation dates and references.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		f.nowFunc = now
		f.refs = NewRefGenerator(now)
	}
}

func NewFactory(shippingFee decimal.Decimal, opts ...FactoryOption) *Factory {
	f := &Factory{
		validate:    validation.New(),
		refs:        NewRefGenerator(time.Now),
		shippingFee: shippingFee,
		nowFunc:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateOrder validates the inputs and builds a pending_payment order. It never persists
// anything; on invalid input it returns a *ValidationError naming the first bad field.
func (f *Factory) CreateOrder(snapshot []cart.Item, address ShippingAddress, method PaymentMethod) (Order, error) {
	in := orderInput{
		Items:           snapshot,
		ShippingAddress: trimAddress(address),
		PaymentMethod:   PaymentMethod(strings.TrimSpace(string(method))),
	}
	if err := f.validate.Struct(in); err != nil {
		if fe, ok := validation.FirstFieldError(err); ok {
			return Order{}, &ValidationError{Field: fe.Field(), Reason: validation.Reason(fe)}
		}
		return Order{}, &ValidationError{Field: "order", Reason: err.Error()}
	}

	items := make([]cart.Item, len(in.Items))
	copy(items, in.Items)
	for _, it := range items {
		if it.Quantity < 1 {
			return Order{}, &ValidationError{Field: "items", Reason: "quantity must be at least 1 for product " + it.ProductID}
		}
	}

	subtotal := cart.Total(items).Round(2)
	shipping := f.shippingFee.Round(2)
	paymentFee := in.PaymentMethod.Fee().Round(2)

	return Order{
		OrderRef:        f.refs.Next(),
		CreatedAt:       f.nowFunc().UTC(),
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		Subtotal:        subtotal,
		ShippingFee:     shipping,
		PaymentFee:      paymentFee,
		Total:           subtotal.Add(shipping).Add(paymentFee),
		Status:          StatusPendingPayment,
	}, nil
}

// Rekey gives o a fresh reference from the same generator, for when its reference
// is already taken in the queue.
func (f *Factory) Rekey(o Order) Order {
	o.OrderRef = f.refs.Next()
	return o
}

func trimAddress(a ShippingAddress) ShippingAddress {
	return ShippingAddress{
		Street:      strings.TrimSpace(a.Street),
		City:        strings.TrimSpace(a.City),
		Province:    strings.TrimSpace(a.Province),
		ZipCode:     strings.TrimSpace(a.ZipCode),
		PhoneNumber: strings.TrimSpace(a.PhoneNumber),
	}
}

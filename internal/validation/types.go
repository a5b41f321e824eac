package validation

import "github.com/shopspring/decimal"

// AddItemRequest is the payload for POST /cart/items.
type AddItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"gt=0"`
	Quantity  int             `json:"quantity" validate:"required,min=1"` // must be >= 1
}

// UpdateQuantityRequest is the payload for PATCH /cart/items/:productId.
// Zero or negative quantities remove the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// AddressRequest carries the shipping fields typed on the checkout form.
// Emptiness is checked by the order factory so the first missing field is reported.
type AddressRequest struct {
	Street      string `json:"street"`
	City        string `json:"city"`
	Province    string `json:"province"`
	ZipCode     string `json:"zip_code"`
	PhoneNumber string `json:"phone_number"`
}

// CheckoutRequest is the payload for POST /checkout.
type CheckoutRequest struct {
	ShippingAddress AddressRequest `json:"shipping_address"`
	PaymentMethod   string         `json:"payment_method"`
}

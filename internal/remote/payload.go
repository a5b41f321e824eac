package remote

import (
	"fmt"
	"strconv"

	"github.com/imrishuroy/go-storefront-orderflow/internal/orders"
)

const (
	paymentStatusPaid = "paid"
	orderNotes        = "Order from mobile app"
)

// OrderPayload is the order-creation request body expected by the backend.
type OrderPayload struct {
	CustomerName    string        `json:"customer_name"`
	CustomerEmail   string        `json:"customer_email"`
	CustomerPhone   string        `json:"customer_phone"`
	ShippingAddress string        `json:"shipping_address"`
	PaymentMethod   string        `json:"payment_method"`
	PaymentStatus   string        `json:"payment_status"`
	Items           []PayloadItem `json:"items"`
	Subtotal        float64       `json:"subtotal"`
	ShippingFee     float64       `json:"shipping_fee"`
	Total           float64       `json:"total"`
	Notes           string        `json:"notes"`
}

type PayloadItem struct {
	ProductID any     `json:"product_id"` // numeric when the id is numeric
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// NewPayload maps an order onto the backend request shape. defaultEmail is used when
// the order carries no customer email.
func NewPayload(o orders.Order, defaultEmail string) OrderPayload {
	p := OrderPayload{
		CustomerEmail:   defaultEmail,
		CustomerPhone:   o.ShippingAddress.PhoneNumber,
		ShippingAddress: FormatAddress(o.ShippingAddress),
		PaymentMethod:   string(o.PaymentMethod),
		PaymentStatus:   paymentStatusPaid,
		Items:           make([]PayloadItem, 0, len(o.Items)),
		Subtotal:        o.Subtotal.InexactFloat64(),
		ShippingFee:     o.ShippingFee.InexactFloat64(),
		Total:           o.Total.InexactFloat64(),
		Notes:           orderNotes,
	}
	if o.Customer != nil {
		p.CustomerName = o.Customer.Name
		if o.Customer.Email != "" {
			p.CustomerEmail = o.Customer.Email
		}
	}
	for _, it := range o.Items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		p.Items = append(p.Items, PayloadItem{
			ProductID: productID(it.ProductID),
			Quantity:  qty,
			Price:     it.Price.InexactFloat64(),
		})
	}
	return p
}

// FormatAddress renders "street, city, province zip".
func FormatAddress(a orders.ShippingAddress) string {
	return fmt.Sprintf("%s, %s, %s %s", a.Street, a.City, a.Province, a.ZipCode)
}

func productID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

package orders

import "github.com/shopspring/decimal"

// PaymentMethod is one of the closed set of accepted payment tags.
type PaymentMethod string

const (
	PaymentGCash        PaymentMethod = "gcash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCreditCard   PaymentMethod = "credit_card"
)

// flat surcharge per method
var paymentFees = map[PaymentMethod]decimal.Decimal{
	PaymentGCash:        decimal.Zero,
	PaymentBankTransfer: decimal.Zero,
	PaymentCreditCard:   decimal.NewFromInt(25),
}

func (m PaymentMethod) Valid() bool {
	_, ok := paymentFees[m]
	return ok
}

// Fee returns the method's flat surcharge; unknown methods carry none.
func (m PaymentMethod) Fee() decimal.Decimal {
	return paymentFees[m]
}

package enums

import (
	"fmt"
	"strings"
)

// PaymentMethodCode identifies how a customer settled a sale.
type PaymentMethodCode string

const (
	PaymentMethodCash     PaymentMethodCode = "CASH"
	PaymentMethodCard     PaymentMethodCode = "CARD"
	PaymentMethodTransfer PaymentMethodCode = "TRANSFER"
	PaymentMethodYape     PaymentMethodCode = "YAPE"
	PaymentMethodPlin     PaymentMethodCode = "PLIN"
)

var validPaymentMethods = []PaymentMethodCode{
	PaymentMethodCash,
	PaymentMethodCard,
	PaymentMethodTransfer,
	PaymentMethodYape,
	PaymentMethodPlin,
}

// PaymentMethodCodes lists the seeded payment methods in display order.
func PaymentMethodCodes() []PaymentMethodCode {
	out := make([]PaymentMethodCode, len(validPaymentMethods))
	copy(out, validPaymentMethods)
	return out
}

// String implements fmt.Stringer.
func (p PaymentMethodCode) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethodCode.
func (p PaymentMethodCode) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethodCode converts raw input into a PaymentMethodCode.
func ParsePaymentMethodCode(value string) (PaymentMethodCode, error) {
	upper := PaymentMethodCode(strings.ToUpper(strings.TrimSpace(value)))
	if upper.IsValid() {
		return upper, nil
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

package enums

import "fmt"

// PaymentMethod is the channel a buyer pays through. Cash never touches the
// gateway; it is only reachable through the admin cart validation flow.
type PaymentMethod string

const (
	PaymentMethodMTNMoMo     PaymentMethod = "mtn_momo"
	PaymentMethodOrangeMoney PaymentMethod = "orange_money"
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodCash        PaymentMethod = "cash"
)

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodMTNMoMo, PaymentMethodOrangeMoney, PaymentMethodCard, PaymentMethodCash:
		return true
	}
	return false
}

// RequiresGateway reports whether the method goes through the hosted payment
// provider.
func (m PaymentMethod) RequiresGateway() bool {
	return m != PaymentMethodCash
}

// RequiresPhone reports whether the method needs a subscriber phone number at
// initiation.
func (m PaymentMethod) RequiresPhone() bool {
	return m == PaymentMethodMTNMoMo || m == PaymentMethodOrangeMoney
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	method := PaymentMethod(value)
	if !method.IsValid() {
		return "", fmt.Errorf("invalid payment method: %q", value)
	}
	return method, nil
}

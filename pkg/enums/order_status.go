package enums

import "fmt"

// OrderStatus tracks an order through the payment pipeline and beyond. The
// pipeline itself only produces pending, paid and cancelled; shipped,
// delivered, disputed and refunded are downstream states set by logistics
// and support flows.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusDisputed  OrderStatus = "disputed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusDisputed, OrderStatusCancelled,
		OrderStatusRefunded:
		return true
	}
	return false
}

// IsTerminal reports whether the order can no longer change status through
// payment confirmation. Only pending orders are still in play.
func (s OrderStatus) IsTerminal() bool {
	return s.IsValid() && s != OrderStatusPending
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	status := OrderStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid order status: %q", value)
	}
	return status, nil
}

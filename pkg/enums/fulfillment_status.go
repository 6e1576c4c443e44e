package enums

import "fmt"

// FulfillmentStatus records how far post-payment fulfillment got for an order.
type FulfillmentStatus string

const (
	FulfillmentStatusNone     FulfillmentStatus = "none"
	FulfillmentStatusComplete FulfillmentStatus = "complete"
	FulfillmentStatusPartial  FulfillmentStatus = "partial"
)

func (s FulfillmentStatus) String() string {
	return string(s)
}

func (s FulfillmentStatus) IsValid() bool {
	switch s {
	case FulfillmentStatusNone, FulfillmentStatusComplete, FulfillmentStatusPartial:
		return true
	}
	return false
}

func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	status := FulfillmentStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid fulfillment status: %q", value)
	}
	return status, nil
}

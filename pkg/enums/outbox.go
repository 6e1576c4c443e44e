package enums

import "fmt"

// OutboxEventType names the domain events written to the transactional outbox.
type OutboxEventType string

const (
	OutboxEventOrderCreated  OutboxEventType = "order.created"
	OutboxEventOrderPaid     OutboxEventType = "order.paid"
	OutboxEventPaymentFailed OutboxEventType = "payment.failed"
)

func (t OutboxEventType) String() string {
	return string(t)
}

func (t OutboxEventType) IsValid() bool {
	switch t {
	case OutboxEventOrderCreated, OutboxEventOrderPaid, OutboxEventPaymentFailed:
		return true
	}
	return false
}

type OutboxAggregateType string

const (
	OutboxAggregateOrder OutboxAggregateType = "order"
)

func (t OutboxAggregateType) String() string {
	return string(t)
}

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

func (s OutboxStatus) String() string {
	return string(s)
}

func (s OutboxStatus) IsValid() bool {
	switch s {
	case OutboxStatusPending, OutboxStatusPublished, OutboxStatusFailed:
		return true
	}
	return false
}

func ParseOutboxStatus(value string) (OutboxStatus, error) {
	status := OutboxStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid outbox status: %q", value)
	}
	return status, nil
}

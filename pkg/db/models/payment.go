package models

import "time"

// Payment is the gateway attempt attached to an order. The provider
// transaction id is the order id, so one row per order.
type Payment struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID       string     `gorm:"type:uuid;uniqueIndex;not null" json:"order_id"`
	Method        string     `gorm:"not null" json:"method"`
	Status        string     `gorm:"not null;default:pending;index" json:"status"`
	Amount        int64      `gorm:"not null" json:"amount"`
	Currency      string     `gorm:"not null;default:XAF" json:"currency"`
	Phone         string     `json:"phone,omitempty"`
	PaymentURL    string     `json:"payment_url,omitempty"`
	ProviderRef   string     `gorm:"index" json:"provider_ref,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

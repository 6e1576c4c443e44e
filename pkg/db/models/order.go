package models

import "time"

// Order is a priced snapshot of a cart at checkout time. TotalAmount is
// denormalized from the items and never recomputed after creation.
type Order struct {
	ID                string     `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID           string     `gorm:"type:uuid;index;not null" json:"buyer_id"`
	Status            string     `gorm:"not null;default:pending;index" json:"status"`
	FulfillmentStatus string     `gorm:"not null;default:none" json:"fulfillment_status"`
	PaymentMethod     string     `gorm:"not null" json:"payment_method"`
	TotalAmount       int64      `gorm:"not null" json:"total_amount"`
	Currency          string     `gorm:"not null;default:XAF" json:"currency"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

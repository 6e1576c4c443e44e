package models

import "time"

// Listing is a book for sale. Digital listings carry no stock; physical
// listings decrement stock at fulfillment, floored at zero.
type Listing struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	SellerID    string    `gorm:"type:uuid;index;not null" json:"seller_id"`
	Title       string    `gorm:"not null" json:"title"`
	Author      string    `json:"author,omitempty"`
	Type        string    `gorm:"not null" json:"type"`
	PriceAmount int64     `gorm:"not null" json:"price_amount"`
	Currency    string    `gorm:"not null;default:XAF" json:"currency"`
	Stock       int       `gorm:"not null;default:0" json:"stock"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}

package models

import "time"

// OrderItem freezes the listing price, seller, and type at checkout so later
// listing edits cannot change what the buyer owes or the seller earns.
// StockAdjusted records whether this line's physical stock decrement has
// landed; it makes the decrement retry-safe independently of the wallet
// credit.
type OrderItem struct {
	ID              string    `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID         string    `gorm:"type:uuid;index;not null" json:"order_id"`
	ListingID       string    `gorm:"type:uuid;index;not null" json:"listing_id"`
	SellerID        string    `gorm:"type:uuid;index;not null" json:"seller_id"`
	Title           string    `gorm:"not null" json:"title"`
	ListingType     string    `gorm:"not null" json:"listing_type"`
	Quantity        int       `gorm:"not null" json:"quantity"`
	UnitPriceAmount int64     `gorm:"not null" json:"unit_price_amount"`
	SubtotalAmount  int64     `gorm:"not null" json:"subtotal_amount"`
	StockAdjusted   bool      `gorm:"not null;default:false" json:"stock_adjusted"`
	CreatedAt       time.Time `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

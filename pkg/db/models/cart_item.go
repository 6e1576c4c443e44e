package models

import "time"

// CartItem is one listing in a buyer's cart. One row per (user, listing);
// digital listings are pinned to quantity 1.
type CartItem struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex:idx_cart_user_listing;not null" json:"user_id"`
	ListingID string    `gorm:"type:uuid;uniqueIndex:idx_cart_user_listing;not null" json:"listing_id"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Listing *Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

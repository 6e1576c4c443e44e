package models

import "time"

// WalletTransaction is one seller ledger entry. The unique
// (order, listing) index keeps fulfillment retries from double-crediting.
type WalletTransaction struct {
	ID               string    `gorm:"type:uuid;primaryKey" json:"id"`
	SellerID         string    `gorm:"type:uuid;index;not null" json:"seller_id"`
	OrderID          string    `gorm:"type:uuid;uniqueIndex:idx_wallet_order_listing;not null" json:"order_id"`
	ListingID        string    `gorm:"type:uuid;uniqueIndex:idx_wallet_order_listing;not null" json:"listing_id"`
	Type             string    `gorm:"not null" json:"type"`
	GrossAmount      int64     `gorm:"not null" json:"gross_amount"`
	CommissionAmount int64     `gorm:"not null" json:"commission_amount"`
	NetAmount        int64     `gorm:"not null" json:"net_amount"`
	Currency         string    `gorm:"not null;default:XAF" json:"currency"`
	CreatedAt        time.Time `json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

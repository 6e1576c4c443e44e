package models

import "time"

// LibraryAccess grants a buyer permanent access to a digital listing. The
// unique (user, listing) index makes repeated grants no-ops.
type LibraryAccess struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex:idx_library_user_listing;not null" json:"user_id"`
	ListingID string    `gorm:"type:uuid;uniqueIndex:idx_library_user_listing;not null" json:"listing_id"`
	OrderID   string    `gorm:"type:uuid;index;not null" json:"order_id"`
	GrantedAt time.Time `gorm:"not null" json:"granted_at"`
	CreatedAt time.Time `json:"created_at"`

	Listing *Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
}

func (LibraryAccess) TableName() string {
	return "library_accesses"
}

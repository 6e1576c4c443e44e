package models

import "time"

type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName  string    `gorm:"not null" json:"display_name"`
	Role         string    `gorm:"not null;default:buyer" json:"role"`
	Phone        string    `json:"phone,omitempty"`
	WalletAmount int64     `gorm:"not null;default:0" json:"wallet_amount"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

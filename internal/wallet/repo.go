package wallet

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moussakone/librio-backend/pkg/db/models"
)

// Repository records seller ledger entries and keeps wallet balances in sync.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreditForSale(ctx context.Context, entry *models.WalletTransaction) (bool, error)
	FindBySeller(ctx context.Context, sellerID string) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wallet repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreditForSale inserts a sale ledger entry and bumps the seller balance.
// The unique (order, listing) index plus ON CONFLICT DO NOTHING makes
// fulfillment retries no-ops: the balance is only touched when the insert
// actually lands.
func (r *repository) CreditForSale(ctx context.Context, entry *models.WalletTransaction) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "listing_id"}},
			DoNothing: true,
		}).
		Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", entry.SellerID).
		Update("wallet_amount", gorm.Expr("wallet_amount + ?", entry.NetAmount)).Error
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) FindBySeller(ctx context.Context, sellerID string) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

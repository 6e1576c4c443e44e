package listings

import (
	"context"

	"gorm.io/gorm"

	"github.com/moussakone/librio-backend/pkg/db/models"
)

// Repository exposes listing reads plus the stock mutation fulfillment needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id string) (*models.Listing, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Listing, error)
	DecrementStock(ctx context.Context, listingID string, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a listings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []string) ([]models.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Listing
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DecrementStock subtracts qty from a physical listing's stock in one
// statement, flooring at zero. Oversold quantities never drive stock negative.
func (r *repository) DecrementStock(ctx context.Context, listingID string, qty int) error {
	if qty <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", listingID).
		Update("stock", gorm.Expr(
			"CASE WHEN stock > ? THEN stock - ? ELSE 0 END", qty, qty,
		)).Error
}

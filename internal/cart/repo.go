package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/moussakone/librio-backend/pkg/db/models"
)

// Repository persists the server-side cart mirror.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUser(ctx context.Context, userID string) ([]models.CartItem, error)
	FindItem(ctx context.Context, userID, listingID string) (*models.CartItem, error)
	Upsert(ctx context.Context, item *models.CartItem) error
	Delete(ctx context.Context, userID, listingID string) error
	DeleteAll(ctx context.Context, userID string) error
	ListUserIDsWithItems(ctx context.Context, limit int, afterUserID string) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Listing").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindItem(ctx context.Context, userID, listingID string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) Upsert(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) Delete(ctx context.Context, userID, listingID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) DeleteAll(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}

// ListUserIDsWithItems pages over distinct cart owners for the admin view.
func (r *repository) ListUserIDsWithItems(ctx context.Context, limit int, afterUserID string) ([]string, error) {
	var userIDs []string
	query := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Distinct("user_id").
		Order("user_id ASC").
		Limit(limit)
	if afterUserID != "" {
		query = query.Where("user_id > ?", afterUserID)
	}
	if err := query.Pluck("user_id", &userIDs).Error; err != nil {
		return nil, err
	}
	return userIDs, nil
}

package library

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moussakone/librio-backend/pkg/db/models"
)

// Repository manages digital library grants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Grant(ctx context.Context, access *models.LibraryAccess) error
	FindByUser(ctx context.Context, userID string) ([]models.LibraryAccess, error)
	HasAccess(ctx context.Context, userID, listingID string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a library repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Grant upserts a (user, listing) access row. Granting twice leaves exactly
// one row.
func (r *repository) Grant(ctx context.Context, access *models.LibraryAccess) error {
	if access.GrantedAt.IsZero() {
		access.GrantedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "listing_id"}},
			DoNothing: true,
		}).
		Create(access).Error
}

func (r *repository) FindByUser(ctx context.Context, userID string) ([]models.LibraryAccess, error) {
	var rows []models.LibraryAccess
	err := r.db.WithContext(ctx).
		Preload("Listing").
		Where("user_id = ?", userID).
		Order("granted_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) HasAccess(ctx context.Context, userID, listingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LibraryAccess{}).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

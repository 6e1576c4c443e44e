package outbox

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/moussakone/librio-backend/pkg/db/models"
	"github.com/moussakone/librio-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&event).Error
}

func (r *Repository) FetchPending(limit int) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := r.db.Where("status = ?", enums.OutboxStatusPending.String()).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublished(id string) error {
	now := time.Now()
	return r.db.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.OutboxStatusPublished.String(),
			"published_at": now,
		}).Error
}

func (r *Repository) MarkFailed(id string, cause error, maxAttempts int) error {
	updates := map[string]any{
		"last_error": cause.Error(),
		"attempts":   gorm.Expr("attempts + 1"),
	}
	if maxAttempts > 0 {
		// Rows that exhaust their attempts stop being picked up.
		updates["status"] = gorm.Expr(
			"CASE WHEN attempts + 1 >= ? THEN ? ELSE status END",
			maxAttempts, enums.OutboxStatusFailed.String(),
		)
	}
	return r.db.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

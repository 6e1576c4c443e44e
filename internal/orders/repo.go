package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/moussakone/librio-backend/pkg/db/models"
	"github.com/moussakone/librio-backend/pkg/enums"
)

// Repository persists orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByBuyer(ctx context.Context, buyerID string) ([]models.Order, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time) (bool, error)
	MarkCancelled(ctx context.Context, id string) (bool, error)
	SetFulfillmentStatus(ctx context.Context, id string, status enums.FulfillmentStatus) error
	ClaimStockAdjustment(ctx context.Context, itemID string) (bool, error)
	ReleaseStockAdjustment(ctx context.Context, itemID string) error
	DeleteWithItems(ctx context.Context, id string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit("Items").Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkPaid moves a pending order to paid. The status guard in the WHERE
// clause makes concurrent confirmations race-safe: exactly one caller sees
// a row change, every other caller sees zero rows affected.
func (r *repository) MarkPaid(ctx context.Context, id string, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending.String()).
		Updates(map[string]any{
			"status":  enums.OrderStatusPaid.String(),
			"paid_at": paidAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkCancelled moves a pending order to cancelled after a provider refusal,
// with the same guard semantics as MarkPaid.
func (r *repository) MarkCancelled(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending.String()).
		Update("status", enums.OrderStatusCancelled.String())
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) SetFulfillmentStatus(ctx context.Context, id string, status enums.FulfillmentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("fulfillment_status", status.String()).Error
}

// ClaimStockAdjustment flips the item's stock_adjusted flag, returning true
// only for the caller that flipped it. The flag is the decrement's own
// idempotency marker, independent of the wallet credit.
func (r *repository) ClaimStockAdjustment(ctx context.Context, itemID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ? AND stock_adjusted = ?", itemID, false).
		Update("stock_adjusted", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseStockAdjustment undoes a claim whose decrement did not land, so a
// later fulfillment run can repair the item.
func (r *repository) ReleaseStockAdjustment(ctx context.Context, itemID string) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Update("stock_adjusted", false).Error
}

// DeleteWithItems removes an order and its items. Used to compensate a
// partially created admin order.
func (r *repository) DeleteWithItems(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Order{}).Error
}

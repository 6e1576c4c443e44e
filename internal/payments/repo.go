package payments

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/moussakone/librio-backend/pkg/db/models"
	"github.com/moussakone/librio-backend/pkg/enums"
)

// Repository persists the gateway attempt attached to each order.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	MarkProcessing(ctx context.Context, orderID, paymentURL, providerRef string) (bool, error)
	MarkCompleted(ctx context.Context, orderID, providerRef string, completedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, orderID, reason string) (bool, error)
	ResetForRetry(ctx context.Context, orderID string, method enums.PaymentMethod, phone string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkProcessing records the provider's acceptance of the initiation. Only a
// pending attempt moves to processing; late acceptances for settled or failed
// attempts change nothing.
func (r *repository) MarkProcessing(ctx context.Context, orderID, paymentURL, providerRef string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusPending.String()).
		Updates(map[string]any{
			"status":       enums.PaymentStatusProcessing.String(),
			"payment_url":  paymentURL,
			"provider_ref": providerRef,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkCompleted settles a payment. The status guard keeps duplicate gateway
// notifications from rewriting a settled row.
func (r *repository) MarkCompleted(ctx context.Context, orderID, providerRef string, completedAt time.Time) (bool, error) {
	updates := map[string]any{
		"status":       enums.PaymentStatusCompleted.String(),
		"completed_at": completedAt,
	}
	if providerRef != "" {
		updates["provider_ref"] = providerRef
	}
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status <> ?", orderID, enums.PaymentStatusCompleted.String()).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkFailed records a refusal or a dead initiation. Completed payments are
// never demoted.
func (r *repository) MarkFailed(ctx context.Context, orderID, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status IN ?", orderID, []string{
			enums.PaymentStatusPending.String(),
			enums.PaymentStatusProcessing.String(),
		}).
		Updates(map[string]any{
			"status":         enums.PaymentStatusFailed.String(),
			"failure_reason": reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ResetForRetry rewinds an unsettled attempt to pending so the buyer can try
// again, picking up the new method and phone. A completed payment never
// rewinds.
func (r *repository) ResetForRetry(ctx context.Context, orderID string, method enums.PaymentMethod, phone string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status <> ?", orderID, enums.PaymentStatusCompleted.String()).
		Updates(map[string]any{
			"status":         enums.PaymentStatusPending.String(),
			"method":         method.String(),
			"phone":          phone,
			"failure_reason": "",
			"payment_url":    "",
			"provider_ref":   "",
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

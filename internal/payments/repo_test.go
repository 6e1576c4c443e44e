package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/moussakone/librio-backend/pkg/db/models"
	"github.com/moussakone/librio-backend/pkg/enums"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  amount INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'XAF',
  phone TEXT,
  payment_url TEXT,
  provider_ref TEXT,
  failure_reason TEXT,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedPayment(t *testing.T, repo Repository, status enums.PaymentStatus) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		ID:       uuid.NewString(),
		OrderID:  uuid.NewString(),
		Method:   enums.PaymentMethodMTNMoMo.String(),
		Status:   status.String(),
		Amount:   5000,
		Currency: "XAF",
		Phone:    "670000000",
	}
	_, err := repo.Create(context.Background(), payment)
	require.NoError(t, err)
	return payment
}

func TestMarkProcessingOnlyFromPending(t *testing.T) {
	repo := NewRepository(setupPaymentsTestDB(t))
	ctx := context.Background()

	payment := seedPayment(t, repo, enums.PaymentStatusPending)

	changed, err := repo.MarkProcessing(ctx, payment.OrderID, "https://pay.example.com/t/1", "tok-1")
	require.NoError(t, err)
	assert.True(t, changed)

	loaded, err := repo.FindByOrderID(ctx, payment.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusProcessing.String(), loaded.Status)
	assert.Equal(t, "https://pay.example.com/t/1", loaded.PaymentURL)

	// A second acceptance finds nothing pending to move.
	changed, err = repo.MarkProcessing(ctx, payment.OrderID, "https://pay.example.com/t/2", "tok-2")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestMarkCompletedNeverRewritesSettledRow(t *testing.T) {
	repo := NewRepository(setupPaymentsTestDB(t))
	ctx := context.Background()

	payment := seedPayment(t, repo, enums.PaymentStatusProcessing)

	changed, err := repo.MarkCompleted(ctx, payment.OrderID, "tok-1", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkCompleted(ctx, payment.OrderID, "tok-2", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, changed)

	loaded, err := repo.FindByOrderID(ctx, payment.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted.String(), loaded.Status)
	assert.Equal(t, "tok-1", loaded.ProviderRef)
}

func TestMarkFailedMovesPendingAndProcessing(t *testing.T) {
	repo := NewRepository(setupPaymentsTestDB(t))
	ctx := context.Background()

	pending := seedPayment(t, repo, enums.PaymentStatusPending)
	processing := seedPayment(t, repo, enums.PaymentStatusProcessing)
	completed := seedPayment(t, repo, enums.PaymentStatusCompleted)

	changed, err := repo.MarkFailed(ctx, pending.OrderID, "gateway initiation failed")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkFailed(ctx, processing.OrderID, "refused")
	require.NoError(t, err)
	assert.True(t, changed)

	// A completed payment is never demoted.
	changed, err = repo.MarkFailed(ctx, completed.OrderID, "late refusal")
	require.NoError(t, err)
	assert.False(t, changed)

	loaded, err := repo.FindByOrderID(ctx, completed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted.String(), loaded.Status)
}

func TestResetForRetryRewindsUnsettledAttempt(t *testing.T) {
	repo := NewRepository(setupPaymentsTestDB(t))
	ctx := context.Background()

	failed := seedPayment(t, repo, enums.PaymentStatusFailed)

	changed, err := repo.ResetForRetry(ctx, failed.OrderID, enums.PaymentMethodCard, "")
	require.NoError(t, err)
	assert.True(t, changed)

	loaded, err := repo.FindByOrderID(ctx, failed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending.String(), loaded.Status)
	assert.Equal(t, enums.PaymentMethodCard.String(), loaded.Method)
	assert.Empty(t, loaded.FailureReason)
	assert.Empty(t, loaded.PaymentURL)

	completed := seedPayment(t, repo, enums.PaymentStatusCompleted)
	changed, err = repo.ResetForRetry(ctx, completed.OrderID, enums.PaymentMethodCard, "")
	require.NoError(t, err)
	assert.False(t, changed)
}

package webhooks

import (
	"context"
	stderrors "errors"

	"github.com/moussakone/librio-backend/internal/payments"
	pkgerrors "github.com/moussakone/librio-backend/pkg/errors"
	"github.com/moussakone/librio-backend/pkg/gateway"
	"github.com/moussakone/librio-backend/pkg/logger"
)

// Service absorbs provider payment notifications. The notification body is a
// hint, never a verdict: processing always re-verifies the transaction with
// the provider before any state changes.
type Service interface {
	ProcessGatewayNotification(ctx context.Context, note *gateway.WebhookNotification) error
}

type service struct {
	payments payments.Service
	siteID   string
	logg     *logger.Logger
}

// NewService wires the webhook service and validates its dependencies.
func NewService(paymentsSvc payments.Service, siteID string, logg *logger.Logger) (Service, error) {
	if paymentsSvc == nil {
		return nil, stderrors.New("payments service is required")
	}
	if logg == nil {
		return nil, stderrors.New("logger is required")
	}
	return &service{payments: paymentsSvc, siteID: siteID, logg: logg}, nil
}

// ProcessGatewayNotification confirms the order named by a provider callback.
// Errors are returned for logging only; the HTTP layer acknowledges the
// notification regardless, because the provider retries on non-2xx and a
// poisoned notification would retry forever.
func (s *service) ProcessGatewayNotification(ctx context.Context, note *gateway.WebhookNotification) error {
	ctx = s.logg.WithOrderID(ctx, note.TransactionID)

	if s.siteID != "" && note.SiteID != "" && note.SiteID != s.siteID {
		s.logg.Warn(ctx, "webhook for foreign site id dropped")
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook site id mismatch")
	}

	// The carried status only decides the log line. Confirm re-verifies
	// against the provider either way.
	s.logg.Info(ctx, "gateway notification received")

	if _, err := s.payments.Confirm(ctx, note.TransactionID, payments.SourceWebhook); err != nil {
		s.logg.Error(ctx, "webhook confirmation failed", err)
		return err
	}
	return nil
}

package webhooks

import (
	"context"
	"testing"

	"github.com/moussakone/librio-backend/internal/payments"
	pkgerrors "github.com/moussakone/librio-backend/pkg/errors"
	"github.com/moussakone/librio-backend/pkg/gateway"
	"github.com/moussakone/librio-backend/pkg/logger"
)

type fakePayments struct {
	confirmed []string
	sources   []payments.ConfirmationSource
	err       error
}

func (f *fakePayments) Initiate(ctx context.Context, input payments.InitiateInput) (*payments.InitiateResult, error) {
	return nil, nil
}

func (f *fakePayments) Confirm(ctx context.Context, orderID string, source payments.ConfirmationSource) (*payments.Status, error) {
	f.confirmed = append(f.confirmed, orderID)
	f.sources = append(f.sources, source)
	if f.err != nil {
		return nil, f.err
	}
	return &payments.Status{OrderID: orderID}, nil
}

func (f *fakePayments) Check(ctx context.Context, orderID, buyerID string) (*payments.Status, error) {
	return nil, nil
}

func (f *fakePayments) ValidateCartAsAdmin(ctx context.Context, input payments.AdminValidateInput) (*payments.Status, error) {
	return nil, nil
}

func newTestService(t *testing.T, p payments.Service, siteID string) Service {
	t.Helper()
	svc, err := NewService(p, siteID, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNotificationTriggersConfirmation(t *testing.T) {
	p := &fakePayments{}
	svc := newTestService(t, p, "site-1")

	err := svc.ProcessGatewayNotification(context.Background(), &gateway.WebhookNotification{
		TransactionID: "order-1",
		SiteID:        "site-1",
		Status:        gateway.StatusAccepted,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(p.confirmed) != 1 || p.confirmed[0] != "order-1" {
		t.Fatalf("expected confirmation for order-1, got %v", p.confirmed)
	}
	if p.sources[0] != payments.SourceWebhook {
		t.Fatalf("expected webhook source, got %s", p.sources[0])
	}
}

func TestCarriedStatusIsNotTrusted(t *testing.T) {
	p := &fakePayments{}
	svc := newTestService(t, p, "")

	// A REFUSED body still goes through confirmation, which re-verifies
	// with the provider. The carried status must not short-circuit it.
	err := svc.ProcessGatewayNotification(context.Background(), &gateway.WebhookNotification{
		TransactionID: "order-2",
		Status:        gateway.StatusRefused,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(p.confirmed) != 1 {
		t.Fatal("refused notification must still be re-verified")
	}
}

func TestForeignSiteIDDropped(t *testing.T) {
	p := &fakePayments{}
	svc := newTestService(t, p, "site-1")

	err := svc.ProcessGatewayNotification(context.Background(), &gateway.WebhookNotification{
		TransactionID: "order-3",
		SiteID:        "site-other",
		Status:        gateway.StatusAccepted,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(p.confirmed) != 0 {
		t.Fatal("foreign site notification must not be confirmed")
	}
}

func TestConfirmationErrorPropagatesForLogging(t *testing.T) {
	p := &fakePayments{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	svc := newTestService(t, p, "")

	err := svc.ProcessGatewayNotification(context.Background(), &gateway.WebhookNotification{
		TransactionID: "order-unknown",
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

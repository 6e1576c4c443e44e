package controllers

import (
	"net/http"

	"github.com/moussakone/librio-backend/api/responses"
	webhooksvc "github.com/moussakone/librio-backend/internal/webhooks"
	"github.com/moussakone/librio-backend/pkg/gateway"
	"github.com/moussakone/librio-backend/pkg/logger"
)

// PaymentWebhook absorbs provider payment notifications. It always answers
// 200 with an outcome body: the provider retries on non-2xx, and a retry loop
// on a notification we cannot use helps nobody. Real state only changes after
// re-verification inside the service.
func PaymentWebhook(svc webhooksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		note, err := gateway.ParseWebhook(r)
		if err != nil {
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "parse_error", err.Error()), "unusable payment webhook")
			}
			responses.WriteSuccess(w, map[string]string{"outcome": "ignored"})
			return
		}

		if err := svc.ProcessGatewayNotification(ctx, note); err != nil {
			responses.WriteSuccess(w, map[string]string{"outcome": "not_processed"})
			return
		}
		responses.WriteSuccess(w, map[string]string{"outcome": "processed"})
	}
}

// PaymentWebhookPing answers the provider's GET availability checks.
func PaymentWebhookPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

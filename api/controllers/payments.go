package controllers

import (
	"net/http"

	"github.com/moussakone/librio-backend/api/responses"
	"github.com/moussakone/librio-backend/api/validators"
	paymentsvc "github.com/moussakone/librio-backend/internal/payments"
	"github.com/moussakone/librio-backend/pkg/enums"
	pkgerrors "github.com/moussakone/librio-backend/pkg/errors"
	"github.com/moussakone/librio-backend/pkg/logger"
)

type initiatePaymentRequest struct {
	OrderID       string `json:"order_id,omitempty" validate:"omitempty,uuid"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=mtn_momo orange_money card"`
	Phone         string `json:"phone,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
}

// PaymentInitiate turns the buyer's cart into a pending order and returns the
// hosted payment page URL. An order_id retries an existing pending order
// instead of creating a new one.
func PaymentInitiate(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := buyerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.Initiate(r.Context(), paymentsvc.InitiateInput{
			BuyerID:      userID,
			OrderID:      payload.OrderID,
			Method:       method,
			Phone:        payload.Phone,
			CustomerName: payload.CustomerName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PaymentVerify is the buyer-facing status poll. Pending orders are
// re-verified against the provider so a lost webhook cannot strand them.
func PaymentVerify(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := buyerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseQueryUUID(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Check(r.Context(), orderID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

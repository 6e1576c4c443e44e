package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/moussakone/librio-backend/api/middleware"
	"github.com/moussakone/librio-backend/api/responses"
	"github.com/moussakone/librio-backend/api/validators"
	cartsvc "github.com/moussakone/librio-backend/internal/cart"
	paymentsvc "github.com/moussakone/librio-backend/internal/payments"
	pkgerrors "github.com/moussakone/librio-backend/pkg/errors"
	"github.com/moussakone/librio-backend/pkg/logger"
	"github.com/moussakone/librio-backend/pkg/pagination"
)

type adminCartPage struct {
	UserIDs    []string `json:"user_ids"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// AdminCartList pages through users that currently have cart items.
func AdminCartList(repo cartsvc.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		after, err := pagination.ParseCursor(r.URL.Query().Get("cursor"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
			return
		}

		afterID := ""
		if after != uuid.Nil {
			afterID = after.String()
		}
		userIDs, err := repo.ListUserIDsWithItems(r.Context(), pagination.LimitWithBuffer(limit), afterID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page := adminCartPage{UserIDs: userIDs}
		if len(userIDs) > limit {
			page.UserIDs = userIDs[:limit]
			if lastID, parseErr := uuid.Parse(page.UserIDs[limit-1]); parseErr == nil {
				page.NextCursor = pagination.EncodeCursor(lastID)
			}
		}
		responses.WriteSuccess(w, page)
	}
}

// AdminCartFetch shows one user's priced cart.
func AdminCartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		if _, err := uuid.Parse(userID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid user id"))
			return
		}

		cart, err := svc.GetCart(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// AdminCartDelete empties a user's cart.
func AdminCartDelete(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		if _, err := uuid.Parse(userID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid user id"))
			return
		}

		if err := svc.Clear(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

// AdminCartValidate settles a user's cart as a cash sale, without the gateway.
func AdminCartValidate(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID := middleware.UserIDFromContext(r.Context())
		if adminID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		userID := chi.URLParam(r, "userId")
		if _, err := uuid.Parse(userID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid user id"))
			return
		}

		status, err := svc.ValidateCartAsAdmin(r.Context(), paymentsvc.AdminValidateInput{
			AdminID: adminID,
			UserID:  userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, status)
	}
}

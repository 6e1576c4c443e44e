package controllers

import (
	"net/http"
	"time"

	"github.com/moussakone/librio-backend/api/responses"
	"github.com/moussakone/librio-backend/internal/library"
	"github.com/moussakone/librio-backend/pkg/logger"
)

type libraryEntry struct {
	ListingID string    `json:"listing_id"`
	Title     string    `json:"title,omitempty"`
	OrderID   string    `json:"order_id"`
	GrantedAt time.Time `json:"granted_at"`
}

// LibraryList returns the buyer's digital grants, newest first.
func LibraryList(repo library.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := buyerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := repo.FindByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries := make([]libraryEntry, 0, len(rows))
		for _, row := range rows {
			entry := libraryEntry{
				ListingID: row.ListingID,
				OrderID:   row.OrderID,
				GrantedAt: row.GrantedAt,
			}
			if row.Listing != nil {
				entry.Title = row.Listing.Title
			}
			entries = append(entries, entry)
		}
		responses.WriteSuccess(w, map[string]any{"items": entries})
	}
}

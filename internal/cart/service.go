package cart

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moussakone/librio-backend/internal/listings"
	"github.com/moussakone/librio-backend/pkg/db/models"
	"github.com/moussakone/librio-backend/pkg/enums"
	pkgerrors "github.com/moussakone/librio-backend/pkg/errors"
	"github.com/moussakone/librio-backend/pkg/logger"
)

// Service exposes the buyer-facing cart operations.
type Service interface {
	GetCart(ctx context.Context, userID string) (*Cart, error)
	AddItem(ctx context.Context, userID, listingID string) (*Cart, error)
	UpdateQuantity(ctx context.Context, userID, listingID string, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, userID, listingID string) (*Cart, error)
	Clear(ctx context.Context, userID string) error
	Replace(ctx context.Context, userID string, items []LocalItem) (*Cart, error)
	Merge(ctx context.Context, userID string, local []LocalItem) (*Cart, error)
}

// Cart is the priced view of a user's cart. Totals are computed on demand
// from current listing prices, never cached.
type Cart struct {
	Items       []Item `json:"items"`
	TotalAmount int64  `json:"total_amount"`
	Count       int    `json:"count"`
}

// Item is one cart line with its listing snapshot.
type Item struct {
	ListingID   string `json:"listing_id"`
	Title       string `json:"title"`
	ListingType string `json:"listing_type"`
	PriceAmount int64  `json:"price_amount"`
	Quantity    int    `json:"quantity"`
	Subtotal    int64  `json:"subtotal_amount"`
	Stock       int    `json:"stock,omitempty"`
}

// LocalItem is a client-side cart line handed over at login.
type LocalItem struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type service struct {
	repo     Repository
	listings listings.Repository
	logg     *logger.Logger
}

// NewService wires the cart service and validates its dependencies.
func NewService(repo Repository, listingRepo listings.Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, stderrors.New("cart repository is required")
	}
	if listingRepo == nil {
		return nil, stderrors.New("listings repository is required")
	}
	if logg == nil {
		return nil, stderrors.New("logger is required")
	}
	return &service{repo: repo, listings: listingRepo, logg: logg}, nil
}

func (s *service) GetCart(ctx context.Context, userID string) (*Cart, error) {
	rows, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	return buildCart(rows), nil
}

// AddItem puts a listing in the cart. Digital listings are pinned to
// quantity 1; adding one twice is a no-op. Physical listings increment up to
// the listing's current stock, and attempts beyond the cap resolve to the
// unchanged cart.
func (s *service) AddItem(ctx context.Context, userID, listingID string) (*Cart, error) {
	listing, err := s.findActiveListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindItem(ctx, userID, listingID)
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart item")
	}

	switch {
	case existing == nil:
		quantity := 1
		if listing.Type == enums.ListingTypePhysical.String() && listing.Stock < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is out of stock")
		}
		item := &models.CartItem{
			ID:        uuid.NewString(),
			UserID:    userID,
			ListingID: listingID,
			Quantity:  quantity,
		}
		if err := s.repo.Upsert(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart item")
		}

	case listing.Type == enums.ListingTypeDigital.String():
		// Digital items cannot be purchased twice in one order.

	case existing.Quantity >= listing.Stock:
		// At the stock cap. No state change, no error.

	default:
		existing.Quantity++
		if err := s.repo.Upsert(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart item")
		}
	}

	return s.GetCart(ctx, userID)
}

func (s *service) UpdateQuantity(ctx context.Context, userID, listingID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	listing, err := s.findActiveListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindItem(ctx, userID, listingID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing is not in the cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart item")
	}

	if listing.Type == enums.ListingTypeDigital.String() {
		quantity = 1
	} else if quantity > listing.Stock {
		quantity = listing.Stock
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is out of stock")
	}

	if existing.Quantity != quantity {
		existing.Quantity = quantity
		if err := s.repo.Upsert(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart item")
		}
	}

	return s.GetCart(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, listingID string) (*Cart, error) {
	if err := s.repo.Delete(ctx, userID, listingID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing cart item")
	}
	return s.GetCart(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID string) error {
	if err := s.repo.DeleteAll(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}
	return nil
}

// Replace swaps the whole cart for the provided lines. Quantities are clamped
// the same way single-item writes are; unknown or inactive listings are
// dropped rather than failing the whole write.
func (s *service) Replace(ctx context.Context, userID string, items []LocalItem) (*Cart, error) {
	if err := s.repo.DeleteAll(ctx, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}

	seen := make(map[string]bool, len(items))
	for _, line := range items {
		if seen[line.ListingID] || line.Quantity < 1 {
			continue
		}
		listing, err := s.findActiveListing(ctx, line.ListingID)
		if err != nil {
			if appErr := pkgerrors.As(err); appErr != nil &&
				(appErr.Code() == pkgerrors.CodeNotFound || appErr.Code() == pkgerrors.CodeStateConflict) {
				continue
			}
			return nil, err
		}

		quantity := line.Quantity
		if listing.Type == enums.ListingTypeDigital.String() {
			quantity = 1
		} else {
			if listing.Stock < 1 {
				continue
			}
			if quantity > listing.Stock {
				quantity = listing.Stock
			}
		}

		item := &models.CartItem{
			ID:        uuid.NewString(),
			UserID:    userID,
			ListingID: line.ListingID,
			Quantity:  quantity,
		}
		if err := s.repo.Upsert(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart item")
		}
		seen[line.ListingID] = true
	}

	return s.GetCart(ctx, userID)
}

// Merge reconciles a client-local cart with the server mirror at login. The
// server copy is authoritative: local-only listings are appended, server
// quantities are never overwritten.
func (s *service) Merge(ctx context.Context, userID string, local []LocalItem) (*Cart, error) {
	serverItems, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}

	known := make(map[string]bool, len(serverItems))
	for _, item := range serverItems {
		known[item.ListingID] = true
	}

	for _, localItem := range local {
		if known[localItem.ListingID] {
			continue
		}
		listing, err := s.findActiveListing(ctx, localItem.ListingID)
		if err != nil {
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
				// Stale local entries are dropped silently.
				continue
			}
			return nil, err
		}

		quantity := localItem.Quantity
		if listing.Type == enums.ListingTypeDigital.String() {
			quantity = 1
		} else {
			if listing.Stock < 1 {
				continue
			}
			if quantity > listing.Stock {
				quantity = listing.Stock
			}
		}

		item := &models.CartItem{
			ID:        uuid.NewString(),
			UserID:    userID,
			ListingID: localItem.ListingID,
			Quantity:  quantity,
		}
		if err := s.repo.Upsert(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving merged cart item")
		}
		known[localItem.ListingID] = true
	}

	return s.GetCart(ctx, userID)
}

func (s *service) findActiveListing(ctx context.Context, listingID string) (*models.Listing, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading listing")
	}
	if !listing.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is no longer available")
	}
	return listing, nil
}

func buildCart(rows []models.CartItem) *Cart {
	cart := &Cart{Items: make([]Item, 0, len(rows))}
	for _, row := range rows {
		item := Item{
			ListingID: row.ListingID,
			Quantity:  row.Quantity,
		}
		if row.Listing != nil {
			item.Title = row.Listing.Title
			item.ListingType = row.Listing.Type
			item.PriceAmount = row.Listing.PriceAmount
			item.Stock = row.Listing.Stock
			item.Subtotal = row.Listing.PriceAmount * int64(row.Quantity)
		}
		cart.Items = append(cart.Items, item)
		cart.TotalAmount += item.Subtotal
		cart.Count += row.Quantity
	}
	return cart
}

package cart

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/moussakone/librio-backend/internal/listings"
	"github.com/moussakone/librio-backend/pkg/db/models"
	"github.com/moussakone/librio-backend/pkg/enums"
	pkgerrors "github.com/moussakone/librio-backend/pkg/errors"
	"github.com/moussakone/librio-backend/pkg/logger"
)

type fakeCartRepo struct {
	items   map[string]*models.CartItem // key: userID|listingID
	catalog map[string]*models.Listing
}

func newFakeCartRepo(catalog map[string]*models.Listing) *fakeCartRepo {
	return &fakeCartRepo{items: map[string]*models.CartItem{}, catalog: catalog}
}

func key(userID, listingID string) string { return userID + "|" + listingID }

func (f *fakeCartRepo) WithTx(tx *gorm.DB) Repository { return f }

// FindByUser mirrors the real repository's listing preload.
func (f *fakeCartRepo) FindByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	var out []models.CartItem
	for _, item := range f.items {
		if item.UserID == userID {
			copied := *item
			copied.Listing = f.catalog[item.ListingID]
			out = append(out, copied)
		}
	}
	return out, nil
}

func (f *fakeCartRepo) FindItem(ctx context.Context, userID, listingID string) (*models.CartItem, error) {
	if item, ok := f.items[key(userID, listingID)]; ok {
		copied := *item
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCartRepo) Upsert(ctx context.Context, item *models.CartItem) error {
	copied := *item
	f.items[key(item.UserID, item.ListingID)] = &copied
	return nil
}

func (f *fakeCartRepo) Delete(ctx context.Context, userID, listingID string) error {
	delete(f.items, key(userID, listingID))
	return nil
}

func (f *fakeCartRepo) DeleteAll(ctx context.Context, userID string) error {
	for k, item := range f.items {
		if item.UserID == userID {
			delete(f.items, k)
		}
	}
	return nil
}

func (f *fakeCartRepo) ListUserIDsWithItems(ctx context.Context, limit int, afterUserID string) ([]string, error) {
	return nil, nil
}

type fakeListingRepo struct {
	listings map[string]*models.Listing
}

func (f *fakeListingRepo) WithTx(tx *gorm.DB) listings.Repository { return f }

func (f *fakeListingRepo) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	if l, ok := f.listings[id]; ok {
		copied := *l
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeListingRepo) FindByIDs(ctx context.Context, ids []string) ([]models.Listing, error) {
	var out []models.Listing
	for _, id := range ids {
		if l, ok := f.listings[id]; ok {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeListingRepo) DecrementStock(ctx context.Context, listingID string, qty int) error {
	return nil
}

func newTestService(t *testing.T, catalog map[string]*models.Listing) (Service, *fakeCartRepo) {
	t.Helper()
	repo := newFakeCartRepo(catalog)
	svc, err := NewService(repo, &fakeListingRepo{listings: catalog}, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo
}

func physicalListing(id string, price int64, stock int) *models.Listing {
	return &models.Listing{
		ID:          id,
		SellerID:    "seller-1",
		Title:       "book " + id,
		Type:        enums.ListingTypePhysical.String(),
		PriceAmount: price,
		Stock:       stock,
		Active:      true,
	}
}

func digitalListing(id string, price int64) *models.Listing {
	return &models.Listing{
		ID:          id,
		SellerID:    "seller-1",
		Title:       "ebook " + id,
		Type:        enums.ListingTypeDigital.String(),
		PriceAmount: price,
		Active:      true,
	}
}

func TestAddItemIncrementsPhysicalQuantity(t *testing.T) {
	svc, _ := newTestService(t, map[string]*models.Listing{
		"l1": physicalListing("l1", 1500, 5),
	})

	ctx := context.Background()
	if _, err := svc.AddItem(ctx, "buyer", "l1"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	cart, err := svc.AddItem(ctx, "buyer", "l1")
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %+v", cart.Items)
	}
	if cart.TotalAmount != 3000 {
		t.Fatalf("expected total 3000, got %d", cart.TotalAmount)
	}
}

func TestAddItemCapsAtStock(t *testing.T) {
	svc, _ := newTestService(t, map[string]*models.Listing{
		"l1": physicalListing("l1", 1000, 2),
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := svc.AddItem(ctx, "buyer", "l1"); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	cart, err := svc.GetCart(ctx, "buyer")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if cart.Items[0].Quantity != 2 {
		t.Fatalf("quantity should stay at stock cap 2, got %d", cart.Items[0].Quantity)
	}
}

func TestAddDigitalItemIsPinnedToOne(t *testing.T) {
	svc, _ := newTestService(t, map[string]*models.Listing{
		"d1": digitalListing("d1", 2000),
	})

	ctx := context.Background()
	if _, err := svc.AddItem(ctx, "buyer", "d1"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	cart, err := svc.AddItem(ctx, "buyer", "d1")
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if cart.Items[0].Quantity != 1 {
		t.Fatalf("digital quantity must stay 1, got %d", cart.Items[0].Quantity)
	}

	cart, err = svc.UpdateQuantity(ctx, "buyer", "d1", 4)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if cart.Items[0].Quantity != 1 {
		t.Fatalf("digital quantity must stay 1 after update, got %d", cart.Items[0].Quantity)
	}
}

func TestAddItemOutOfStockRejected(t *testing.T) {
	svc, _ := newTestService(t, map[string]*models.Listing{
		"l1": physicalListing("l1", 1000, 0),
	})

	_, err := svc.AddItem(context.Background(), "buyer", "l1")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestAddItemUnknownListing(t *testing.T) {
	svc, _ := newTestService(t, map[string]*models.Listing{})

	_, err := svc.AddItem(context.Background(), "buyer", "missing")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMergeKeepsServerQuantities(t *testing.T) {
	svc, repo := newTestService(t, map[string]*models.Listing{
		"l1": physicalListing("l1", 1000, 10),
		"l2": physicalListing("l2", 500, 10),
	})

	ctx := context.Background()
	repo.items[key("buyer", "l1")] = &models.CartItem{
		ID: "ci-1", UserID: "buyer", ListingID: "l1", Quantity: 3,
	}

	cart, err := svc.Merge(ctx, "buyer", []LocalItem{
		{ListingID: "l1", Quantity: 9},
		{ListingID: "l2", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	byListing := map[string]int{}
	for _, item := range cart.Items {
		byListing[item.ListingID] = item.Quantity
	}
	if byListing["l1"] != 3 {
		t.Fatalf("server quantity must win for l1, got %d", byListing["l1"])
	}
	if byListing["l2"] != 2 {
		t.Fatalf("local-only l2 should be appended with qty 2, got %d", byListing["l2"])
	}
}

func TestMergeDropsStaleLocalItems(t *testing.T) {
	svc, _ := newTestService(t, map[string]*models.Listing{
		"l1": physicalListing("l1", 1000, 10),
	})

	cart, err := svc.Merge(context.Background(), "buyer", []LocalItem{
		{ListingID: "l1", Quantity: 1},
		{ListingID: "deleted", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].ListingID != "l1" {
		t.Fatalf("stale local item should be dropped, got %+v", cart.Items)
	}
}

func TestReplaceSwapsCartAndClampsQuantities(t *testing.T) {
	svc, repo := newTestService(t, map[string]*models.Listing{
		"l1": physicalListing("l1", 1000, 3),
		"d1": digitalListing("d1", 2000),
	})

	ctx := context.Background()
	repo.items[key("buyer", "old")] = &models.CartItem{
		ID: "ci-old", UserID: "buyer", ListingID: "old", Quantity: 1,
	}

	cart, err := svc.Replace(ctx, "buyer", []LocalItem{
		{ListingID: "l1", Quantity: 9},
		{ListingID: "d1", Quantity: 5},
		{ListingID: "gone", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	byListing := map[string]int{}
	for _, item := range cart.Items {
		byListing[item.ListingID] = item.Quantity
	}
	if _, ok := byListing["old"]; ok {
		t.Fatal("previous cart lines must be removed")
	}
	if byListing["l1"] != 3 {
		t.Fatalf("physical quantity should clamp to stock 3, got %d", byListing["l1"])
	}
	if byListing["d1"] != 1 {
		t.Fatalf("digital quantity should pin to 1, got %d", byListing["d1"])
	}
	if _, ok := byListing["gone"]; ok {
		t.Fatal("unknown listings should be dropped")
	}
}

func TestClearEmptiesCart(t *testing.T) {
	svc, _ := newTestService(t, map[string]*models.Listing{
		"l1": physicalListing("l1", 1000, 10),
	})

	ctx := context.Background()
	if _, err := svc.AddItem(ctx, "buyer", "l1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Clear(ctx, "buyer"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	cart, err := svc.GetCart(ctx, "buyer")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(cart.Items) != 0 || cart.TotalAmount != 0 {
		t.Fatalf("cart should be empty, got %+v", cart)
	}
}

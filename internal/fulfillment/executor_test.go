package fulfillment

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/moussakone/librio-backend/internal/library"
	"github.com/moussakone/librio-backend/internal/listings"
	"github.com/moussakone/librio-backend/internal/wallet"
	"github.com/moussakone/librio-backend/pkg/db/models"
	"github.com/moussakone/librio-backend/pkg/enums"
	"github.com/moussakone/librio-backend/pkg/logger"
)

type fakeWalletRepo struct {
	entries map[string]*models.WalletTransaction // key: orderID|listingID
	failFor map[string]error
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{
		entries: map[string]*models.WalletTransaction{},
		failFor: map[string]error{},
	}
}

func (f *fakeWalletRepo) WithTx(tx *gorm.DB) wallet.Repository { return f }

func (f *fakeWalletRepo) CreditForSale(ctx context.Context, entry *models.WalletTransaction) (bool, error) {
	if err := f.failFor[entry.ListingID]; err != nil {
		return false, err
	}
	k := entry.OrderID + "|" + entry.ListingID
	if _, ok := f.entries[k]; ok {
		return false, nil
	}
	copied := *entry
	f.entries[k] = &copied
	return true, nil
}

func (f *fakeWalletRepo) FindBySeller(ctx context.Context, sellerID string) ([]models.WalletTransaction, error) {
	return nil, nil
}

type fakeLibraryRepo struct {
	grants map[string]int // key: userID|listingID -> rows, mirrors the unique index
}

func newFakeLibraryRepo() *fakeLibraryRepo {
	return &fakeLibraryRepo{grants: map[string]int{}}
}

func (f *fakeLibraryRepo) WithTx(tx *gorm.DB) library.Repository { return f }

// Grant mirrors the real repository's ON CONFLICT DO NOTHING semantics.
func (f *fakeLibraryRepo) Grant(ctx context.Context, access *models.LibraryAccess) error {
	k := access.UserID + "|" + access.ListingID
	if _, ok := f.grants[k]; !ok {
		f.grants[k] = 1
	}
	return nil
}

func (f *fakeLibraryRepo) FindByUser(ctx context.Context, userID string) ([]models.LibraryAccess, error) {
	return nil, nil
}

func (f *fakeLibraryRepo) HasAccess(ctx context.Context, userID, listingID string) (bool, error) {
	k := userID + "|" + listingID
	return f.grants[k] > 0, nil
}

type fakeStockRepo struct {
	stock   map[string]int
	failFor map[string]error
}

func (f *fakeStockRepo) WithTx(tx *gorm.DB) listings.Repository { return f }

func (f *fakeStockRepo) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStockRepo) FindByIDs(ctx context.Context, ids []string) ([]models.Listing, error) {
	return nil, nil
}

func (f *fakeStockRepo) DecrementStock(ctx context.Context, listingID string, qty int) error {
	if err := f.failFor[listingID]; err != nil {
		return err
	}
	remaining := f.stock[listingID] - qty
	if remaining < 0 {
		remaining = 0
	}
	f.stock[listingID] = remaining
	return nil
}

// fakeStockMarker mirrors the guarded stock_adjusted flag on order items.
type fakeStockMarker struct {
	adjusted map[string]bool
}

func newFakeStockMarker() *fakeStockMarker {
	return &fakeStockMarker{adjusted: map[string]bool{}}
}

func (f *fakeStockMarker) ClaimStockAdjustment(ctx context.Context, itemID string) (bool, error) {
	if f.adjusted[itemID] {
		return false, nil
	}
	f.adjusted[itemID] = true
	return true, nil
}

func (f *fakeStockMarker) ReleaseStockAdjustment(ctx context.Context, itemID string) error {
	delete(f.adjusted, itemID)
	return nil
}

func paidOrder() *models.Order {
	return &models.Order{
		ID:       "order-1",
		BuyerID:  "buyer-1",
		Status:   enums.OrderStatusPaid.String(),
		Currency: "XAF",
		Items: []models.OrderItem{
			{
				ID:              "item-digital-a",
				OrderID:         "order-1",
				ListingID:       "digital-a",
				SellerID:        "seller-1",
				ListingType:     enums.ListingTypeDigital.String(),
				Quantity:        1,
				UnitPriceAmount: 2000,
				SubtotalAmount:  2000,
			},
			{
				ID:              "item-physical-b",
				OrderID:         "order-1",
				ListingID:       "physical-b",
				SellerID:        "seller-2",
				ListingType:     enums.ListingTypePhysical.String(),
				Quantity:        2,
				UnitPriceAmount: 1500,
				SubtotalAmount:  3000,
			},
		},
	}
}

type executorFixture struct {
	wallet  *fakeWalletRepo
	library *fakeLibraryRepo
	stock   *fakeStockRepo
	marker  *fakeStockMarker
	exec    Executor
}

func newExecutorFixture(t *testing.T, stock map[string]int) *executorFixture {
	t.Helper()
	f := &executorFixture{
		wallet:  newFakeWalletRepo(),
		library: newFakeLibraryRepo(),
		stock:   &fakeStockRepo{stock: stock, failFor: map[string]error{}},
		marker:  newFakeStockMarker(),
	}
	exec, err := NewExecutor(f.wallet, f.library, f.stock, f.marker, "10", logger.New(logger.Options{ServiceName: "test"}), nil)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}
	f.exec = exec
	return f
}

func TestExecuteFulfillsAllItems(t *testing.T) {
	f := newExecutorFixture(t, map[string]int{"physical-b": 5})

	status, err := f.exec.Execute(context.Background(), paidOrder())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if status != enums.FulfillmentStatusComplete {
		t.Fatalf("expected complete, got %s", status)
	}

	if len(f.wallet.entries) != 2 {
		t.Fatalf("expected 2 wallet entries, got %d", len(f.wallet.entries))
	}
	digital := f.wallet.entries["order-1|digital-a"]
	if digital.CommissionAmount != 200 || digital.NetAmount != 1800 {
		t.Fatalf("unexpected commission split %+v", digital)
	}
	if f.stock.stock["physical-b"] != 3 {
		t.Fatalf("expected stock 3, got %d", f.stock.stock["physical-b"])
	}
	if f.library.grants["buyer-1|digital-a"] == 0 {
		t.Fatal("digital access not granted")
	}
}

func TestExecuteIsIdempotent(t *testing.T) {
	f := newExecutorFixture(t, map[string]int{"physical-b": 5})

	order := paidOrder()
	for i := 0; i < 3; i++ {
		status, err := f.exec.Execute(context.Background(), order)
		if err != nil {
			t.Fatalf("execute %d: %v", i, err)
		}
		if status != enums.FulfillmentStatusComplete {
			t.Fatalf("execute %d: expected complete, got %s", i, status)
		}
	}

	if len(f.wallet.entries) != 2 {
		t.Fatalf("wallet entries duplicated: %d", len(f.wallet.entries))
	}
	if f.stock.stock["physical-b"] != 3 {
		t.Fatalf("stock decremented more than once: %d", f.stock.stock["physical-b"])
	}
	if f.library.grants["buyer-1|digital-a"] != 1 {
		t.Fatalf("expected exactly one access row, got %d", f.library.grants["buyer-1|digital-a"])
	}
}

func TestExecutePartialFailureDoesNotBlockOtherItems(t *testing.T) {
	f := newExecutorFixture(t, map[string]int{"physical-b": 5})
	f.wallet.failFor["digital-a"] = errors.New("ledger unavailable")

	status, err := f.exec.Execute(context.Background(), paidOrder())
	if err == nil {
		t.Fatal("expected combined error for failed item")
	}
	if status != enums.FulfillmentStatusPartial {
		t.Fatalf("expected partial, got %s", status)
	}

	// The physical item still went through.
	if f.stock.stock["physical-b"] != 3 {
		t.Fatalf("expected stock 3, got %d", f.stock.stock["physical-b"])
	}
	if _, ok := f.wallet.entries["order-1|physical-b"]; !ok {
		t.Fatal("physical item credit missing")
	}
}

func TestStockFlooredAtZero(t *testing.T) {
	f := newExecutorFixture(t, map[string]int{"physical-b": 1})

	status, err := f.exec.Execute(context.Background(), paidOrder())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if status != enums.FulfillmentStatusComplete {
		t.Fatalf("expected complete, got %s", status)
	}
	if f.stock.stock["physical-b"] != 0 {
		t.Fatalf("stock should floor at zero, got %d", f.stock.stock["physical-b"])
	}
}

func TestRerunRepairsFailedStockDecrement(t *testing.T) {
	f := newExecutorFixture(t, map[string]int{"physical-b": 5})
	f.stock.failFor["physical-b"] = errors.New("listing store unavailable")

	// First run: the seller is credited but the decrement fails, so the
	// item ends partial with the adjustment still unclaimed.
	status, err := f.exec.Execute(context.Background(), paidOrder())
	if err == nil {
		t.Fatal("expected error from failed decrement")
	}
	if status != enums.FulfillmentStatusPartial {
		t.Fatalf("expected partial, got %s", status)
	}
	if _, ok := f.wallet.entries["order-1|physical-b"]; !ok {
		t.Fatal("seller credit should have landed on the first run")
	}
	if f.stock.stock["physical-b"] != 5 {
		t.Fatalf("stock must be untouched after failed decrement, got %d", f.stock.stock["physical-b"])
	}

	// Second run: the credit is a no-op, the decrement goes through.
	delete(f.stock.failFor, "physical-b")
	status, err = f.exec.Execute(context.Background(), paidOrder())
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if status != enums.FulfillmentStatusComplete {
		t.Fatalf("expected complete, got %s", status)
	}
	if f.stock.stock["physical-b"] != 3 {
		t.Fatalf("rerun should decrement exactly once, got %d", f.stock.stock["physical-b"])
	}
	if len(f.wallet.entries) != 2 {
		t.Fatalf("rerun must not duplicate credits, got %d", len(f.wallet.entries))
	}
}

func TestNewExecutorRejectsBadCommission(t *testing.T) {
	walletRepo := newFakeWalletRepo()
	libraryRepo := newFakeLibraryRepo()
	stockRepo := &fakeStockRepo{stock: map[string]int{}, failFor: map[string]error{}}
	marker := newFakeStockMarker()
	logg := logger.New(logger.Options{ServiceName: "test"})

	if _, err := NewExecutor(walletRepo, libraryRepo, stockRepo, marker, "abc", logg, nil); err == nil {
		t.Fatal("expected error for non-numeric percent")
	}
	if _, err := NewExecutor(walletRepo, libraryRepo, stockRepo, marker, "120", logg, nil); err == nil {
		t.Fatal("expected error for percent above 100")
	}
}

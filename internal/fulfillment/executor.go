package fulfillment

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/moussakone/librio-backend/internal/library"
	"github.com/moussakone/librio-backend/internal/listings"
	"github.com/moussakone/librio-backend/internal/wallet"
	"github.com/moussakone/librio-backend/pkg/db/models"
	"github.com/moussakone/librio-backend/pkg/enums"
	"github.com/moussakone/librio-backend/pkg/logger"
	"github.com/moussakone/librio-backend/pkg/metrics"
)

// Executor runs the per-item side effects of a paid order: seller wallet
// credit, digital library grant, physical stock decrement. Each item is
// attempted independently; one failure never blocks the other items.
type Executor interface {
	Execute(ctx context.Context, order *models.Order) (enums.FulfillmentStatus, error)
}

// stockMarker tracks which order items have had their stock decrement
// applied; satisfied by orders.Repository.
type stockMarker interface {
	ClaimStockAdjustment(ctx context.Context, itemID string) (bool, error)
	ReleaseStockAdjustment(ctx context.Context, itemID string) error
}

type executor struct {
	wallet            wallet.Repository
	library           library.Repository
	listings          listings.Repository
	items             stockMarker
	commissionPercent decimal.Decimal
	logg              *logger.Logger
	metrics           *metrics.PaymentMetrics
}

// NewExecutor wires the fulfillment executor and validates its dependencies.
// commissionPercent is the platform cut, e.g. "10" for ten percent.
func NewExecutor(
	walletRepo wallet.Repository,
	libraryRepo library.Repository,
	listingRepo listings.Repository,
	items stockMarker,
	commissionPercent string,
	logg *logger.Logger,
	pm *metrics.PaymentMetrics,
) (Executor, error) {
	if walletRepo == nil {
		return nil, stderrors.New("wallet repository is required")
	}
	if libraryRepo == nil {
		return nil, stderrors.New("library repository is required")
	}
	if listingRepo == nil {
		return nil, stderrors.New("listings repository is required")
	}
	if items == nil {
		return nil, stderrors.New("stock marker is required")
	}
	if logg == nil {
		return nil, stderrors.New("logger is required")
	}
	percent, err := decimal.NewFromString(commissionPercent)
	if err != nil {
		return nil, fmt.Errorf("invalid commission percent %q: %w", commissionPercent, err)
	}
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("commission percent %s out of range", percent)
	}
	return &executor{
		wallet:            walletRepo,
		library:           libraryRepo,
		listings:          listingRepo,
		items:             items,
		commissionPercent: percent,
		logg:              logg,
		metrics:           pm,
	}, nil
}

// Execute fans out over the order's items. It returns the aggregate status
// (complete or partial) plus the combined item errors for logging; callers
// must not treat a partial result as a reason to roll back the paid order.
func (e *executor) Execute(ctx context.Context, order *models.Order) (enums.FulfillmentStatus, error) {
	ctx = e.logg.WithOrderID(ctx, order.ID)

	var combined error
	for _, item := range order.Items {
		if err := e.fulfillItem(ctx, order, item); err != nil {
			itemCtx := e.logg.WithFields(ctx, map[string]any{"listing_id": item.ListingID})
			e.logg.Error(itemCtx, "fulfillment item failed", err)
			combined = multierr.Append(combined, fmt.Errorf("item %s: %w", item.ListingID, err))
		}
	}

	status := enums.FulfillmentStatusComplete
	if combined != nil {
		status = enums.FulfillmentStatusPartial
	}
	e.metrics.IncFulfillment(status.String())
	return status, combined
}

func (e *executor) fulfillItem(ctx context.Context, order *models.Order, item models.OrderItem) error {
	commission, net := e.split(item.SubtotalAmount)

	_, err := e.wallet.CreditForSale(ctx, &models.WalletTransaction{
		ID:               uuid.NewString(),
		SellerID:         item.SellerID,
		OrderID:          order.ID,
		ListingID:        item.ListingID,
		Type:             enums.WalletTransactionTypeSaleCredit.String(),
		GrossAmount:      item.SubtotalAmount,
		CommissionAmount: commission,
		NetAmount:        net,
		Currency:         order.Currency,
	})
	if err != nil {
		return fmt.Errorf("crediting seller wallet: %w", err)
	}

	switch item.ListingType {
	case enums.ListingTypeDigital.String():
		err := e.library.Grant(ctx, &models.LibraryAccess{
			ID:        uuid.NewString(),
			UserID:    order.BuyerID,
			ListingID: item.ListingID,
			OrderID:   order.ID,
		})
		if err != nil {
			return fmt.Errorf("granting library access: %w", err)
		}

	case enums.ListingTypePhysical.String():
		// The item's own flag decides whether stock still needs adjusting,
		// so a rerun after a failed decrement repairs the item even when
		// the wallet credit already landed.
		claimed, err := e.items.ClaimStockAdjustment(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("claiming stock adjustment: %w", err)
		}
		if claimed {
			if err := e.listings.DecrementStock(ctx, item.ListingID, item.Quantity); err != nil {
				if relErr := e.items.ReleaseStockAdjustment(ctx, item.ID); relErr != nil {
					e.logg.Error(ctx, "releasing stock adjustment failed", relErr)
				}
				return fmt.Errorf("decrementing stock: %w", err)
			}
		}
	}

	return nil
}

// split computes the platform commission on a line subtotal. The commission
// rounds down so the seller never loses a unit to rounding.
func (e *executor) split(subtotal int64) (commission, net int64) {
	gross := decimal.NewFromInt(subtotal)
	commission = gross.
		Mul(e.commissionPercent).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
	return commission, subtotal - commission
}

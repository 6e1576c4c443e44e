package checkout

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moussakone/librio-backend/internal/cart"
	"github.com/moussakone/librio-backend/internal/listings"
	"github.com/moussakone/librio-backend/internal/orders"
	"github.com/moussakone/librio-backend/pkg/db/models"
	"github.com/moussakone/librio-backend/pkg/enums"
	pkgerrors "github.com/moussakone/librio-backend/pkg/errors"
	"github.com/moussakone/librio-backend/pkg/logger"
	"github.com/moussakone/librio-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service turns a cart into a pending order with prices frozen at checkout.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
}

// CreateOrderInput carries what checkout needs to snapshot a cart.
type CreateOrderInput struct {
	BuyerID       string
	PaymentMethod enums.PaymentMethod
	Currency      string
	Actor         *outbox.ActorRef
}

// OrderCreatedEvent is emitted when a pending order is written.
type OrderCreatedEvent struct {
	OrderID       string `json:"order_id"`
	BuyerID       string `json:"buyer_id"`
	TotalAmount   int64  `json:"total_amount"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method"`
	ItemCount     int    `json:"item_count"`
}

type service struct {
	cartRepo  cart.Repository
	listings  listings.Repository
	orders    orders.Repository
	tx        txRunner
	outbox    outboxPublisher
	logg      *logger.Logger
}

// NewService wires the checkout service and validates its dependencies.
func NewService(
	cartRepo cart.Repository,
	listingRepo listings.Repository,
	orderRepo orders.Repository,
	tx txRunner,
	ob outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if cartRepo == nil {
		return nil, stderrors.New("cart repository is required")
	}
	if listingRepo == nil {
		return nil, stderrors.New("listings repository is required")
	}
	if orderRepo == nil {
		return nil, stderrors.New("orders repository is required")
	}
	if tx == nil {
		return nil, stderrors.New("transaction runner is required")
	}
	if ob == nil {
		return nil, stderrors.New("outbox publisher is required")
	}
	if logg == nil {
		return nil, stderrors.New("logger is required")
	}
	return &service{
		cartRepo: cartRepo,
		listings: listingRepo,
		orders:   orderRepo,
		tx:       tx,
		outbox:   ob,
		logg:     logg,
	}, nil
}

// CreateOrder snapshots the buyer's cart into a pending order. Prices and
// totals come from the listings as they are right now; the snapshot is
// immutable afterwards, so later price edits cannot change what the buyer
// owes.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	cartItems, err := s.cartRepo.FindByUser(ctx, input.BuyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	if len(cartItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}

	listingIDs := make([]string, 0, len(cartItems))
	for _, item := range cartItems {
		listingIDs = append(listingIDs, item.ListingID)
	}
	rows, err := s.listings.FindByIDs(ctx, listingIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading listings")
	}
	byID := make(map[string]models.Listing, len(rows))
	for _, listing := range rows {
		byID[listing.ID] = listing
	}

	currency := input.Currency
	if currency == "" {
		currency = "XAF"
	}

	order := &models.Order{
		ID:                uuid.NewString(),
		BuyerID:           input.BuyerID,
		Status:            enums.OrderStatusPending.String(),
		FulfillmentStatus: enums.FulfillmentStatusNone.String(),
		PaymentMethod:     input.PaymentMethod.String(),
		Currency:          currency,
	}

	items := make([]models.OrderItem, 0, len(cartItems))
	for _, cartItem := range cartItems {
		listing, ok := byID[cartItem.ListingID]
		if !ok || !listing.Active {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a cart item is no longer available").
				WithDetails(map[string]string{"listing_id": cartItem.ListingID})
		}

		quantity := cartItem.Quantity
		if listing.Type == enums.ListingTypeDigital.String() {
			quantity = 1
		} else if quantity > listing.Stock {
			// Stock shrank since the item was carted.
			quantity = listing.Stock
		}
		if quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a cart item is out of stock").
				WithDetails(map[string]string{"listing_id": cartItem.ListingID})
		}

		subtotal := listing.PriceAmount * int64(quantity)
		items = append(items, models.OrderItem{
			ID:              uuid.NewString(),
			OrderID:         order.ID,
			ListingID:       listing.ID,
			SellerID:        listing.SellerID,
			Title:           listing.Title,
			ListingType:     listing.Type,
			Quantity:        quantity,
			UnitPriceAmount: listing.PriceAmount,
			SubtotalAmount:  subtotal,
		})
		order.TotalAmount += subtotal
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		if _, err := orderRepo.Create(ctx, order); err != nil {
			return err
		}
		if err := orderRepo.CreateItems(ctx, items); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderCreated,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor,
			Data: OrderCreatedEvent{
				OrderID:       order.ID,
				BuyerID:       order.BuyerID,
				TotalAmount:   order.TotalAmount,
				Currency:      order.Currency,
				PaymentMethod: order.PaymentMethod,
				ItemCount:     len(items),
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
	}

	order.Items = items
	orderCtx := s.logg.WithOrderID(ctx, order.ID)
	s.logg.Info(orderCtx, "order created")
	return order, nil
}

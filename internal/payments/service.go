package payments

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moussakone/librio-backend/internal/cart"
	"github.com/moussakone/librio-backend/internal/checkout"
	"github.com/moussakone/librio-backend/internal/fulfillment"
	"github.com/moussakone/librio-backend/internal/orders"
	"github.com/moussakone/librio-backend/pkg/db/models"
	"github.com/moussakone/librio-backend/pkg/enums"
	pkgerrors "github.com/moussakone/librio-backend/pkg/errors"
	"github.com/moussakone/librio-backend/pkg/gateway"
	"github.com/moussakone/librio-backend/pkg/logger"
	"github.com/moussakone/librio-backend/pkg/metrics"
	"github.com/moussakone/librio-backend/pkg/outbox"
)

// ConfirmationSource names who is asking for a payment to be confirmed.
type ConfirmationSource string

const (
	SourceWebhook ConfirmationSource = "webhook"
	SourcePoll    ConfirmationSource = "poll"
	SourceAdmin   ConfirmationSource = "admin"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// gatewayClient is the provider surface the service needs; satisfied by
// *gateway.Client and by test fakes.
type gatewayClient interface {
	Initiate(ctx context.Context, params gateway.InitiateParams) (*gateway.InitiateResult, error)
	Verify(ctx context.Context, transactionID string) (*gateway.TransactionStatus, error)
}

// Service drives the payment pipeline: initiation, idempotent confirmation,
// and post-payment fulfillment.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	Confirm(ctx context.Context, orderID string, source ConfirmationSource) (*Status, error)
	Check(ctx context.Context, orderID, buyerID string) (*Status, error)
	ValidateCartAsAdmin(ctx context.Context, input AdminValidateInput) (*Status, error)
}

// InitiateInput starts a gateway checkout. With an empty OrderID the buyer's
// current cart is snapshotted into a new pending order; with an OrderID the
// named pending order is retried instead, so a dead gateway attempt never
// strands it.
type InitiateInput struct {
	BuyerID      string
	OrderID      string
	Method       enums.PaymentMethod
	Phone        string
	CustomerName string
}

// InitiateResult is returned to the buyer to continue on the hosted page.
type InitiateResult struct {
	OrderID     string `json:"order_id"`
	PaymentURL  string `json:"payment_url"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
}

// Status is the converged pipeline view of one order.
type Status struct {
	OrderID           string `json:"order_id"`
	OrderStatus       string `json:"order_status"`
	PaymentStatus     string `json:"payment_status,omitempty"`
	FulfillmentStatus string `json:"fulfillment_status"`
	TotalAmount       int64  `json:"total_amount"`
	Currency          string `json:"currency"`
}

// AdminValidateInput confirms a buyer's cart as a cash sale.
type AdminValidateInput struct {
	AdminID string
	UserID  string
}

// OrderPaidEvent is emitted exactly once when an order transitions to paid.
type OrderPaidEvent struct {
	OrderID     string `json:"order_id"`
	BuyerID     string `json:"buyer_id"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
	Source      string `json:"source"`
}

// PaymentFailedEvent is emitted when the provider refuses a transaction.
type PaymentFailedEvent struct {
	OrderID string `json:"order_id"`
	BuyerID string `json:"buyer_id"`
	Reason  string `json:"reason,omitempty"`
}

type service struct {
	orders      orders.Repository
	payments    Repository
	cartRepo    cart.Repository
	checkout    checkout.Service
	fulfillment fulfillment.Executor
	gateway     gatewayClient
	tx          txRunner
	outbox      outboxPublisher
	logg        *logger.Logger
	metrics     *metrics.PaymentMetrics
}

// NewService wires the payments service and validates its dependencies.
func NewService(
	orderRepo orders.Repository,
	paymentRepo Repository,
	cartRepo cart.Repository,
	checkoutSvc checkout.Service,
	executor fulfillment.Executor,
	gw gatewayClient,
	tx txRunner,
	ob outboxPublisher,
	logg *logger.Logger,
	pm *metrics.PaymentMetrics,
) (Service, error) {
	if orderRepo == nil {
		return nil, stderrors.New("orders repository is required")
	}
	if paymentRepo == nil {
		return nil, stderrors.New("payments repository is required")
	}
	if cartRepo == nil {
		return nil, stderrors.New("cart repository is required")
	}
	if checkoutSvc == nil {
		return nil, stderrors.New("checkout service is required")
	}
	if executor == nil {
		return nil, stderrors.New("fulfillment executor is required")
	}
	if gw == nil {
		return nil, stderrors.New("gateway client is required")
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
		orders:      orderRepo,
		payments:    paymentRepo,
		cartRepo:    cartRepo,
		checkout:    checkoutSvc,
		fulfillment: executor,
		gateway:     gw,
		tx:          tx,
		outbox:      ob,
		logg:        logg,
		metrics:     pm,
	}, nil
}

// Initiate snapshots the cart into a pending order (or picks up an existing
// pending order for a retry), records the payment attempt, and only then
// calls the gateway. The order and payment rows exist before any money can
// move, so a crash mid-initiation leaves a pending order that reconciliation
// can resolve, never an untracked charge.
func (s *service) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	if !input.Method.IsValid() || !input.Method.RequiresGateway() {
		s.metrics.IncInitiation(input.Method.String(), "rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	if input.Method.RequiresPhone() && input.Phone == "" {
		s.metrics.IncInitiation(input.Method.String(), "rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number is required for mobile money")
	}

	var order *models.Order
	var err error
	if input.OrderID != "" {
		order, err = s.orderForRetry(ctx, input)
	} else {
		order, err = s.orderFromCart(ctx, input)
	}
	if err != nil {
		s.metrics.IncInitiation(input.Method.String(), "error")
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID)

	result, err := s.gateway.Initiate(ctx, gateway.InitiateParams{
		TransactionID: order.ID,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		Channel:       channelFor(input.Method),
		Phone:         input.Phone,
		CustomerName:  input.CustomerName,
		Description:   "librio order " + order.ID,
	})
	if err != nil {
		// The attempt is dead but the pending order stays; the buyer can
		// retry it with the order id.
		if _, failErr := s.payments.MarkFailed(ctx, order.ID, "gateway initiation failed"); failErr != nil {
			s.logg.Error(ctx, "marking payment failed", failErr)
		}
		s.metrics.IncInitiation(input.Method.String(), "gateway_error")
		s.logg.Error(ctx, "gateway initiation failed", err)
		return nil, err
	}

	if _, err := s.payments.MarkProcessing(ctx, order.ID, result.PaymentURL, result.ProviderRef); err != nil {
		s.logg.Error(ctx, "marking payment processing failed", err)
	}
	if err := s.cartRepo.DeleteAll(ctx, input.BuyerID); err != nil {
		s.logg.Error(ctx, "clearing cart after initiation failed", err)
	}

	s.metrics.IncInitiation(input.Method.String(), "success")
	s.logg.Info(ctx, "payment initiated")
	return &InitiateResult{
		OrderID:     order.ID,
		PaymentURL:  result.PaymentURL,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
	}, nil
}

// orderFromCart creates a fresh pending order from the buyer's cart and
// attaches a pending payment attempt to it.
func (s *service) orderFromCart(ctx context.Context, input InitiateInput) (*models.Order, error) {
	order, err := s.checkout.CreateOrder(ctx, checkout.CreateOrderInput{
		BuyerID:       input.BuyerID,
		PaymentMethod: input.Method,
		Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: enums.UserRoleBuyer.String()},
	})
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ID:       uuid.NewString(),
		OrderID:  order.ID,
		Method:   input.Method.String(),
		Status:   enums.PaymentStatusPending.String(),
		Amount:   order.TotalAmount,
		Currency: order.Currency,
		Phone:    input.Phone,
	}
	if _, err := s.payments.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording payment attempt")
	}
	return order, nil
}

// orderForRetry loads an existing order for another initiation attempt. The
// already-paid check runs before any gateway call, so a settled order can
// never be charged twice.
func (s *service) orderForRetry(ctx context.Context, input InitiateInput) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	if order.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
	}
	if order.Status == enums.OrderStatusPaid.String() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	if order.Status != enums.OrderStatusPending.String() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer payable")
	}

	if _, err := s.payments.FindByOrderID(ctx, order.ID); err != nil {
		if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment attempt")
		}
		payment := &models.Payment{
			ID:       uuid.NewString(),
			OrderID:  order.ID,
			Method:   input.Method.String(),
			Status:   enums.PaymentStatusPending.String(),
			Amount:   order.TotalAmount,
			Currency: order.Currency,
			Phone:    input.Phone,
		}
		if _, err := s.payments.Create(ctx, payment); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording payment attempt")
		}
		return order, nil
	}

	if _, err := s.payments.ResetForRetry(ctx, order.ID, input.Method, input.Phone); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resetting payment attempt")
	}
	return order, nil
}

// Confirm converges an order onto its final payment state. It is safe to
// call any number of times from any source: duplicate webhooks, polls racing
// webhooks, and admin overrides all funnel through the same pending->paid
// guard, and fulfillment runs only for the caller that won that transition.
func (s *service) Confirm(ctx context.Context, orderID string, source ConfirmationSource) (*Status, error) {
	ctx = s.logg.WithOrderID(ctx, orderID)

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}

	// Already settled: confirmation is a no-op, not an error.
	if order.Status == enums.OrderStatusPaid.String() {
		s.metrics.IncConfirmation(string(source), "already_paid")
		return s.statusFor(ctx, order), nil
	}

	if source == SourceAdmin {
		return s.settle(ctx, order, source, "")
	}

	verifyStart := time.Now()
	verdict, err := s.gateway.Verify(ctx, orderID)
	if err != nil {
		s.metrics.ObserveVerifyDuration("error", time.Since(verifyStart))
		s.metrics.IncConfirmation(string(source), "verify_error")
		return nil, err
	}
	s.metrics.ObserveVerifyDuration("success", time.Since(verifyStart))

	switch {
	case verdict.Completed():
		return s.settle(ctx, order, source, verdict.ProviderRef)

	case verdict.Refused():
		return s.reject(ctx, order, source, verdict.Reason)

	default:
		s.metrics.IncConfirmation(string(source), "pending")
		return s.statusFor(ctx, order), nil
	}
}

// Check is the buyer-facing poll. It re-verifies pending orders against the
// provider so a lost webhook cannot strand a settled payment.
func (s *service) Check(ctx context.Context, orderID, buyerID string) (*Status, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	if order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
	}

	if order.Status != enums.OrderStatusPending.String() {
		return s.statusFor(ctx, order), nil
	}
	return s.Confirm(ctx, orderID, SourcePoll)
}

// ValidateCartAsAdmin turns a buyer's cart into a paid cash order in one
// step. Totals are recomputed from current listing prices at validation
// time, so the admin confirms exactly what the items cost now.
func (s *service) ValidateCartAsAdmin(ctx context.Context, input AdminValidateInput) (*Status, error) {
	order, err := s.checkout.CreateOrder(ctx, checkout.CreateOrderInput{
		BuyerID:       input.UserID,
		PaymentMethod: enums.PaymentMethodCash,
		Actor:         &outbox.ActorRef{UserID: input.AdminID, Role: enums.UserRoleAdmin.String()},
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID)

	payment := &models.Payment{
		ID:       uuid.NewString(),
		OrderID:  order.ID,
		Method:   enums.PaymentMethodCash.String(),
		Status:   enums.PaymentStatusPending.String(),
		Amount:   order.TotalAmount,
		Currency: order.Currency,
	}
	if _, err := s.payments.Create(ctx, payment); err != nil {
		// Compensate so a half-validated cart does not leave a stray
		// pending order behind.
		if delErr := s.orders.DeleteWithItems(ctx, order.ID); delErr != nil {
			s.logg.Error(ctx, "compensating order delete failed", delErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording cash payment")
	}

	status, err := s.settle(ctx, order, SourceAdmin, "")
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.DeleteAll(ctx, input.UserID); err != nil {
		s.logg.Error(ctx, "clearing cart after validation failed", err)
	}
	return status, nil
}

// settle performs the single paid transition plus its exactly-once side
// effects. Losing the MarkPaid race is success: someone else settled it.
func (s *service) settle(ctx context.Context, order *models.Order, source ConfirmationSource, providerRef string) (*Status, error) {
	paidAt := time.Now().UTC()
	var won bool

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := s.orders.WithTx(tx).MarkPaid(ctx, order.ID, paidAt)
		if err != nil {
			return err
		}
		won = changed
		if !changed {
			return nil
		}
		if _, err := s.payments.WithTx(tx).MarkCompleted(ctx, order.ID, providerRef, paidAt); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderPaid,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Data: OrderPaidEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				TotalAmount: order.TotalAmount,
				Currency:    order.Currency,
				Source:      string(source),
			},
		})
	})
	if err != nil {
		s.metrics.IncConfirmation(string(source), "error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settling payment")
	}

	if !won {
		// Another confirmation got there first; converge on its result.
		s.metrics.IncConfirmation(string(source), "already_paid")
		current, err := s.orders.FindByID(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading order")
		}
		return s.statusFor(ctx, current), nil
	}

	s.metrics.IncConfirmation(string(source), "paid")
	s.logg.Info(ctx, "order paid")

	order.Status = enums.OrderStatusPaid.String()
	fulfillStatus, fulfillErr := s.fulfillment.Execute(ctx, order)
	if fulfillErr != nil {
		// Partial fulfillment never rolls back a paid order; the failed
		// items are retried out of band.
		s.logg.Error(ctx, "fulfillment incomplete", fulfillErr)
	}
	if err := s.orders.SetFulfillmentStatus(ctx, order.ID, fulfillStatus); err != nil {
		s.logg.Error(ctx, "recording fulfillment status failed", err)
	}
	order.FulfillmentStatus = fulfillStatus.String()

	return s.statusFor(ctx, order), nil
}

// reject records a provider refusal: the payment moves to failed and the
// order to cancelled. Only pending orders move; a refusal arriving after a
// successful confirmation is ignored.
func (s *service) reject(ctx context.Context, order *models.Order, source ConfirmationSource, reason string) (*Status, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := s.orders.WithTx(tx).MarkCancelled(ctx, order.ID)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if _, err := s.payments.WithTx(tx).MarkFailed(ctx, order.ID, reason); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventPaymentFailed,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Data: PaymentFailedEvent{
				OrderID: order.ID,
				BuyerID: order.BuyerID,
				Reason:  reason,
			},
		})
	})
	if err != nil {
		s.metrics.IncConfirmation(string(source), "error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording refusal")
	}

	s.metrics.IncConfirmation(string(source), "failed")
	s.logg.Warn(ctx, "payment refused")

	current, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading order")
	}
	return s.statusFor(ctx, current), nil
}

func (s *service) statusFor(ctx context.Context, order *models.Order) *Status {
	status := &Status{
		OrderID:           order.ID,
		OrderStatus:       order.Status,
		FulfillmentStatus: order.FulfillmentStatus,
		TotalAmount:       order.TotalAmount,
		Currency:          order.Currency,
	}
	if payment, err := s.payments.FindByOrderID(ctx, order.ID); err == nil {
		status.PaymentStatus = payment.Status
	}
	return status
}

func channelFor(method enums.PaymentMethod) string {
	switch method {
	case enums.PaymentMethodMTNMoMo, enums.PaymentMethodOrangeMoney:
		return "MOBILE_MONEY"
	case enums.PaymentMethodCard:
		return "CREDIT_CARD"
	default:
		return "ALL"
	}
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazarmoz/bazar-backend/internal/cart"
	"github.com/bazarmoz/bazar-backend/internal/catalog"
	"github.com/bazarmoz/bazar-backend/internal/delivery"
	"github.com/bazarmoz/bazar-backend/internal/users"
	"github.com/bazarmoz/bazar-backend/pkg/config"
	"github.com/bazarmoz/bazar-backend/pkg/db/models"
	"github.com/bazarmoz/bazar-backend/pkg/enums"
	pkgerrors "github.com/bazarmoz/bazar-backend/pkg/errors"
	"github.com/bazarmoz/bazar-backend/pkg/logger"
	"github.com/bazarmoz/bazar-backend/pkg/metrics"
	"github.com/bazarmoz/bazar-backend/pkg/outbox"
	"github.com/bazarmoz/bazar-backend/pkg/outbox/payloads"
)

// Service prices and commits checkouts against the user's cart.
type Service interface {
	Quote(ctx context.Context, userID uuid.UUID, req QuoteRequest) (*Quote, error)
	Commit(ctx context.Context, userID uuid.UUID, req CommitRequest) (*models.Order, error)
}

type cartStore interface {
	Load(ctx context.Context, userID uuid.UUID) *cart.Cart
	Delete(ctx context.Context, userID uuid.UUID) error
}

type balanceStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	DecrementDiscount(ctx context.Context, tx *gorm.DB, id uuid.UUID, amount decimal.Decimal) error
}

type stockStore interface {
	DecrementStock(ctx context.Context, tx *gorm.DB, productID string, quantity int) error
}

type orderWriter interface {
	CreateTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Order, error)
}

type feeQuoter interface {
	Quote(buyer delivery.Location) delivery.FeeResult
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams bundles the dependencies required to build a checkout service.
type ServiceParams struct {
	TxRunner txRunner
	Cart     cartStore
	Users    balanceStore
	Stock    stockStore
	Orders   orderWriter
	Fees     feeQuoter
	Outbox   outboxEmitter
	Seller   config.SellerConfig
	Metrics  *metrics.CommerceMetrics
	Logger   *logger.Logger
}

type service struct {
	tx      txRunner
	cart    cartStore
	users   balanceStore
	stock   stockStore
	orders  orderWriter
	fees    feeQuoter
	outbox  outboxEmitter
	seller  config.SellerConfig
	metrics *metrics.CommerceMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService constructs a checkout service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart store is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock store is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order writer is required")
	}
	if params.Fees == nil {
		return nil, fmt.Errorf("fee quoter is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		tx:      params.TxRunner,
		cart:    params.Cart,
		users:   params.Users,
		stock:   params.Stock,
		orders:  params.Orders,
		fees:    params.Fees,
		outbox:  params.Outbox,
		seller:  params.Seller,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

type pricing struct {
	subtotal        decimal.Decimal
	discountApplied decimal.Decimal
	fee             delivery.FeeResult
	total           decimal.Decimal
	itemCount       int
	balance         decimal.Decimal
}

// price computes the full breakdown. The discount is capped at the subtotal
// so it never drives the goods portion negative.
func (s *service) price(userCart *cart.Cart, balance decimal.Decimal, loc delivery.Location, applyDiscount bool) pricing {
	subtotal := userCart.TotalPrice()

	discountApplied := decimal.Zero
	if applyDiscount {
		discountApplied = decimal.Min(balance, subtotal)
		if discountApplied.IsNegative() {
			discountApplied = decimal.Zero
		}
	}

	fee := s.fees.Quote(loc)

	goods := subtotal.Sub(discountApplied)
	if goods.IsNegative() {
		goods = decimal.Zero
	}

	return pricing{
		subtotal:        subtotal,
		discountApplied: discountApplied,
		fee:             fee,
		total:           goods.Add(fee.DeliveryFee),
		itemCount:       userCart.TotalItems(),
		balance:         balance,
	}
}

// Quote prices the current cart without persisting anything.
func (s *service) Quote(ctx context.Context, userID uuid.UUID, req QuoteRequest) (*Quote, error) {
	userCart := s.cart.Load(ctx, userID)
	if userCart.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}

	p := s.price(userCart, user.AvailableDiscount, deliveryLocation(req.DeliveryLocation, user), req.ApplyDiscount)
	return quoteFromPricing(p, s.seller.ID), nil
}

// deliveryLocation prefers the coordinates sent with the request and falls
// back to the pair stored on the profile when the request carries none.
// A user with neither keeps the (0,0) "no location on file" free quote.
func deliveryLocation(req delivery.Location, user *models.User) delivery.Location {
	if req.Latitude != 0 || req.Longitude != 0 {
		return req
	}
	if user.LocationLatitude != nil && user.LocationLongitude != nil {
		return delivery.Location{
			Latitude:  *user.LocationLatitude,
			Longitude: *user.LocationLongitude,
		}
	}
	return req
}

// Commit turns the cart into an immutable order inside one transaction,
// decrementing stock per line and the discount balance when applied.
func (s *service) Commit(ctx context.Context, userID uuid.UUID, req CommitRequest) (*models.Order, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	address := strings.TrimSpace(req.Address)
	if name == "" || email == "" || address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, email and address are required")
	}

	userCart := s.cart.Load(ctx, userID)
	if userCart.IsEmpty() {
		s.countFailure("empty_cart")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}

	p := s.price(userCart, user.AvailableDiscount, deliveryLocation(req.DeliveryLocation, user), req.ApplyDiscount)
	orderDate := s.now()

	items := make([]models.OrderItem, 0, len(userCart.Lines))
	for _, line := range userCart.Lines {
		items = append(items, models.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.Price,
		})
	}

	order := &models.Order{
		UserID:          userID,
		Name:            name,
		Email:           email,
		Address:         address,
		SellerID:        s.seller.ID,
		Subtotal:        p.subtotal,
		DiscountApplied: p.discountApplied,
		DeliveryFee:     p.fee.DeliveryFee,
		TotalAmount:     p.total,
		OrderDate:       orderDate,
		Items:           items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.orders.CreateTx(ctx, tx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		order = created

		for _, line := range userCart.Lines {
			if err := s.stock.DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				if errors.Is(err, catalog.ErrInsufficientStock) {
					return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
						WithDetails(map[string]string{"product_id": line.ProductID})
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}
		}

		if p.discountApplied.IsPositive() {
			if err := s.users.DecrementDiscount(ctx, tx, userID, p.discountApplied); err != nil {
				if errors.Is(err, users.ErrInsufficientBalance) {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "discount balance changed, retry checkout")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement discount")
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Email: email},
			Data: payloads.OrderCreatedEvent{
				OrderID:         order.ID,
				UserID:          userID,
				SellerID:        order.SellerID,
				Subtotal:        order.Subtotal.StringFixed(2),
				DiscountApplied: order.DiscountApplied.StringFixed(2),
				DeliveryFee:     order.DeliveryFee.StringFixed(2),
				TotalAmount:     order.TotalAmount.StringFixed(2),
				ItemCount:       p.itemCount,
				OrderDate:       orderDate,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order event")
		}
		return nil
	})
	if err != nil {
		s.countFailure(failureReason(err))
		return nil, err
	}

	// The order is committed; a stale snapshot only resurfaces an already
	// purchased cart, so snapshot cleanup is best effort.
	if err := s.cart.Delete(ctx, userID); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "cart snapshot cleanup failed")
	}
	if s.metrics != nil {
		s.metrics.IncOrderCreated()
	}
	return order, nil
}

func quoteFromPricing(p pricing, sellerID string) *Quote {
	return &Quote{
		Subtotal:        p.subtotal.StringFixed(2),
		DiscountApplied: p.discountApplied.StringFixed(2),
		DeliveryFee:     p.fee.DeliveryFee.StringFixed(2),
		DistanceKm:      p.fee.DistanceKm.StringFixed(2),
		Total:           p.total.StringFixed(2),
		ItemCount:       p.itemCount,
		AvailableBefore: p.balance.StringFixed(2),
		SellerID:        sellerID,
	}
}

func (s *service) countFailure(reason string) {
	if s.metrics != nil {
		s.metrics.IncCheckoutFailure(reason)
	}
}

func failureReason(err error) string {
	coded := pkgerrors.As(err)
	if coded == nil {
		return "internal"
	}
	switch coded.Code() {
	case pkgerrors.CodeConflict:
		return "insufficient_stock"
	case pkgerrors.CodeStateConflict:
		return "balance_conflict"
	default:
		return "internal"
	}
}

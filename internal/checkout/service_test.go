package checkout

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bazarmoz/bazar-backend/internal/cart"
	"github.com/bazarmoz/bazar-backend/internal/catalog"
	"github.com/bazarmoz/bazar-backend/internal/delivery"
	"github.com/bazarmoz/bazar-backend/internal/users"
	"github.com/bazarmoz/bazar-backend/pkg/config"
	"github.com/bazarmoz/bazar-backend/pkg/db/models"
	pkgerrors "github.com/bazarmoz/bazar-backend/pkg/errors"
	"github.com/bazarmoz/bazar-backend/pkg/logger"
	"github.com/bazarmoz/bazar-backend/pkg/outbox"
	"github.com/bazarmoz/bazar-backend/pkg/outbox/payloads"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubCartStore struct {
	cart    *cart.Cart
	deleted bool
}

func (s *stubCartStore) Load(ctx context.Context, userID uuid.UUID) *cart.Cart {
	if s.cart == nil {
		return cart.NewCart()
	}
	return s.cart
}

func (s *stubCartStore) Delete(ctx context.Context, userID uuid.UUID) error {
	s.deleted = true
	return nil
}

type stubBalanceStore struct {
	user *models.User
}

func (s *stubBalanceStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubBalanceStore) DecrementDiscount(ctx context.Context, tx *gorm.DB, id uuid.UUID, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	if s.user.AvailableDiscount.LessThan(amount) {
		return users.ErrInsufficientBalance
	}
	s.user.AvailableDiscount = s.user.AvailableDiscount.Sub(amount)
	return nil
}

type stubStockStore struct {
	stock map[string]int
}

func (s *stubStockStore) DecrementStock(ctx context.Context, tx *gorm.DB, productID string, quantity int) error {
	if s.stock[productID] < quantity {
		return catalog.ErrInsufficientStock
	}
	s.stock[productID] -= quantity
	return nil
}

type stubOrderWriter struct {
	created *models.Order
}

func (s *stubOrderWriter) CreateTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Order, error) {
	order.ID = uuid.New()
	s.created = order
	return order, nil
}

type stubFeeQuoter struct {
	fee decimal.Decimal
}

func (s stubFeeQuoter) Quote(buyer delivery.Location) delivery.FeeResult {
	return delivery.FeeResult{
		DistanceKm:  decimal.NewFromInt(3).Round(2),
		DeliveryFee: s.fee.Round(2),
	}
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type checkoutTestSetup struct {
	service Service
	userID  uuid.UUID
	cart    *stubCartStore
	users   *stubBalanceStore
	stock   *stubStockStore
	orders  *stubOrderWriter
	emitter *stubEmitter
}

func cartOf(lines ...cart.Line) *cart.Cart {
	return &cart.Cart{Lines: lines}
}

func line(productID string, price int64, qty int) cart.Line {
	return cart.Line{
		ProductID: productID,
		Name:      "Produto " + productID,
		Price:     decimal.NewFromInt(price),
		Stock:     100,
		Quantity:  qty,
	}
}

func newCheckoutTestSetup(t *testing.T, userCart *cart.Cart, balance int64, fee int64) *checkoutTestSetup {
	t.Helper()
	userID := uuid.New()
	cartStore := &stubCartStore{cart: userCart}
	userStore := &stubBalanceStore{user: &models.User{
		ID:                userID,
		Email:             "ana@example.com",
		AvailableDiscount: decimal.NewFromInt(balance),
	}}
	stock := &stubStockStore{stock: map[string]int{}}
	if userCart != nil {
		for _, l := range userCart.Lines {
			stock.stock[l.ProductID] = l.Stock
		}
	}
	orderWriter := &stubOrderWriter{}
	emitter := &stubEmitter{}

	svc, err := NewService(ServiceParams{
		TxRunner: stubTxRunner{},
		Cart:     cartStore,
		Users:    userStore,
		Stock:    stock,
		Orders:   orderWriter,
		Fees:     stubFeeQuoter{fee: decimal.NewFromInt(fee)},
		Outbox:   emitter,
		Seller:   config.SellerConfig{ID: "bazar-maputo"},
		Logger:   logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return &checkoutTestSetup{
		service: svc,
		userID:  userID,
		cart:    cartStore,
		users:   userStore,
		stock:   stock,
		orders:  orderWriter,
		emitter: emitter,
	}
}

func buyerLocation() delivery.Location {
	return delivery.Location{Latitude: -25.89, Longitude: 32.55}
}

func TestQuoteAppliesCappedDiscount(t *testing.T) {
	setup := newCheckoutTestSetup(t, cartOf(line("1-a4-amor", 1000, 1)), 150, 45)

	quote, err := setup.service.Quote(context.Background(), setup.userID, QuoteRequest{
		DeliveryLocation: buyerLocation(),
		ApplyDiscount:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", quote.Subtotal)
	assert.Equal(t, "150.00", quote.DiscountApplied)
	assert.Equal(t, "45.00", quote.DeliveryFee)
	assert.Equal(t, "895.00", quote.Total)

	quote, err = setup.service.Quote(context.Background(), setup.userID, QuoteRequest{
		DeliveryLocation: buyerLocation(),
		ApplyDiscount:    false,
	})
	require.NoError(t, err)
	assert.Equal(t, "0.00", quote.DiscountApplied)
	assert.Equal(t, "1045.00", quote.Total)

	// Quoting never touches the persisted balance.
	assert.True(t, setup.users.user.AvailableDiscount.Equal(decimal.NewFromInt(150)))
}

func TestQuoteReportsBalanceBeforeDiscount(t *testing.T) {
	setup := newCheckoutTestSetup(t, cartOf(line("1-a4-amor", 1000, 1)), 150, 45)

	quote, err := setup.service.Quote(context.Background(), setup.userID, QuoteRequest{
		DeliveryLocation: buyerLocation(),
		ApplyDiscount:    true,
	})
	require.NoError(t, err)

	// The field carries the pre-quote balance, untouched by the discount
	// applied above, and says so on the wire.
	assert.Equal(t, "150.00", quote.AvailableBefore)
	raw, err := json.Marshal(quote)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"available_discount_before":"150.00"`)
}

func TestQuoteCapsDiscountAtSubtotal(t *testing.T) {
	setup := newCheckoutTestSetup(t, cartOf(line("2", 500, 1)), 2000, 45)

	quote, err := setup.service.Quote(context.Background(), setup.userID, QuoteRequest{
		DeliveryLocation: buyerLocation(),
		ApplyDiscount:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "500.00", quote.DiscountApplied)
	assert.Equal(t, "45.00", quote.Total)
}

func TestQuoteEmptyCart(t *testing.T) {
	setup := newCheckoutTestSetup(t, nil, 0, 45)

	_, err := setup.service.Quote(context.Background(), setup.userID, QuoteRequest{})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func commitRequest(apply bool) CommitRequest {
	return CommitRequest{
		Name:             "Ana Macamo",
		Email:            "Ana@Example.com",
		Address:          "Av. Julius Nyerere 100, Maputo",
		DeliveryLocation: buyerLocation(),
		ApplyDiscount:    apply,
	}
}

func TestCommitCreatesOrderAndDecrementsExactly(t *testing.T) {
	setup := newCheckoutTestSetup(t, cartOf(line("1-a4-amor", 1000, 1)), 150, 45)

	order, err := setup.service.Commit(context.Background(), setup.userID, commitRequest(true))
	require.NoError(t, err)

	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(1000)))
	assert.True(t, order.DiscountApplied.Equal(decimal.NewFromInt(150)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(895)))
	require.Len(t, order.Items, 1)
	assert.Equal(t, "1-a4-amor", order.Items[0].ProductID)

	// Balance dropped by exactly the applied amount and stock by the line qty.
	assert.True(t, setup.users.user.AvailableDiscount.IsZero())
	assert.Equal(t, 99, setup.stock.stock["1-a4-amor"])
	assert.True(t, setup.cart.deleted)

	require.Len(t, setup.emitter.events, 1)
	payload, ok := setup.emitter.events[0].Data.(payloads.OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, order.ID, payload.OrderID)
	assert.Equal(t, "895.00", payload.TotalAmount)
}

func TestCommitWithOversizedBalance(t *testing.T) {
	setup := newCheckoutTestSetup(t, cartOf(line("2", 500, 1)), 2000, 45)

	order, err := setup.service.Commit(context.Background(), setup.userID, commitRequest(true))
	require.NoError(t, err)

	assert.True(t, order.DiscountApplied.Equal(decimal.NewFromInt(500)))
	assert.True(t, setup.users.user.AvailableDiscount.Equal(decimal.NewFromInt(1500)),
		"got %s", setup.users.user.AvailableDiscount)
}

func TestCommitWithoutDiscountLeavesBalance(t *testing.T) {
	setup := newCheckoutTestSetup(t, cartOf(line("2", 950, 2)), 150, 45)

	order, err := setup.service.Commit(context.Background(), setup.userID, commitRequest(false))
	require.NoError(t, err)

	assert.True(t, order.DiscountApplied.IsZero())
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(1945)))
	assert.True(t, setup.users.user.AvailableDiscount.Equal(decimal.NewFromInt(150)))
}

func TestPricingFallsBackToStoredCoordinates(t *testing.T) {
	setup := newCheckoutTestSetup(t, cartOf(line("2", 500, 1)), 0, 0)
	lat, lng := -25.89, 32.55
	setup.users.user.LocationLatitude = &lat
	setup.users.user.LocationLongitude = &lng

	calc, err := delivery.NewCalculator(config.SellerConfig{
		ID:        "bazar-maputo",
		Latitude:  -25.9653,
		Longitude: 32.5892,
		RatePerKm: "15",
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		TxRunner: stubTxRunner{},
		Cart:     setup.cart,
		Users:    setup.users,
		Stock:    setup.stock,
		Orders:   setup.orders,
		Fees:     calc,
		Outbox:   setup.emitter,
		Seller:   config.SellerConfig{ID: "bazar-maputo"},
		Logger:   logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard}),
	})
	require.NoError(t, err)

	// No delivery_location in the body: the profile coordinates still price
	// the trip instead of reading the zero value as "no location on file".
	quote, err := svc.Quote(context.Background(), setup.userID, QuoteRequest{})
	require.NoError(t, err)
	assert.NotEqual(t, "0.00", quote.DeliveryFee)
	assert.NotEqual(t, "0.00", quote.DistanceKm)

	req := commitRequest(false)
	req.DeliveryLocation = delivery.Location{}
	order, err := svc.Commit(context.Background(), setup.userID, req)
	require.NoError(t, err)
	assert.True(t, order.DeliveryFee.IsPositive(), "got %s", order.DeliveryFee)

	// An explicit request location still wins over the stored pair.
	explicit, err := svc.Quote(context.Background(), setup.userID, QuoteRequest{
		DeliveryLocation: delivery.Location{Latitude: -25.9653, Longitude: 32.5892},
	})
	require.NoError(t, err)
	assert.Equal(t, "0.00", explicit.DeliveryFee)
}

func TestCommitInsufficientStock(t *testing.T) {
	setup := newCheckoutTestSetup(t, cartOf(line("2", 950, 2)), 0, 45)
	setup.stock.stock["2"] = 1

	_, err := setup.service.Commit(context.Background(), setup.userID, commitRequest(false))
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeConflict, coded.Code())
	assert.False(t, setup.cart.deleted)
	assert.Empty(t, setup.emitter.events)
}

func TestCommitBalanceRace(t *testing.T) {
	setup := newCheckoutTestSetup(t, cartOf(line("2", 950, 1)), 150, 45)

	// A concurrent checkout drained the balance after the quote was taken.
	drained := &racingBalanceStore{inner: setup.users}
	svc, err := NewService(ServiceParams{
		TxRunner: stubTxRunner{},
		Cart:     setup.cart,
		Users:    drained,
		Stock:    setup.stock,
		Orders:   setup.orders,
		Fees:     stubFeeQuoter{fee: decimal.NewFromInt(45)},
		Outbox:   setup.emitter,
		Seller:   config.SellerConfig{ID: "bazar-maputo"},
		Logger:   logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard}),
	})
	require.NoError(t, err)

	_, err = svc.Commit(context.Background(), setup.userID, commitRequest(true))
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeStateConflict, coded.Code())
}

// racingBalanceStore reports a balance at read time that is gone by the time
// the decrement runs, mimicking a concurrent checkout on another device.
type racingBalanceStore struct {
	inner *stubBalanceStore
}

func (r *racingBalanceStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.inner.FindByID(ctx, id)
}

func (r *racingBalanceStore) DecrementDiscount(ctx context.Context, tx *gorm.DB, id uuid.UUID, amount decimal.Decimal) error {
	return users.ErrInsufficientBalance
}

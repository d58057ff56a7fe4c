package order

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"
	cartsvc "storefront/internal/service/cart"
)

type reservation struct {
	variantID string
	quantity  int
}

// recordingLedger records reserve/release calls and can be told to refuse a
// specific variant.
type recordingLedger struct {
	levels      map[string]int
	failVariant string
	failAvail   int
	releaseErr  error

	reserved []reservation
	released []reservation
}

func (l *recordingLedger) TryReserve(_ context.Context, variantID string, quantity int) error {
	if variantID == l.failVariant {
		return &domain.InsufficientStockError{VariantID: variantID, Available: l.failAvail}
	}
	l.reserved = append(l.reserved, reservation{variantID, quantity})
	return nil
}

func (l *recordingLedger) Release(_ context.Context, variantID string, quantity int) error {
	if l.releaseErr != nil {
		return l.releaseErr
	}
	l.released = append(l.released, reservation{variantID, quantity})
	return nil
}

func (l *recordingLedger) CurrentStock(_ context.Context, variantID string) (int, error) {
	qty, ok := l.levels[variantID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return qty, nil
}

type stubCartStore struct {
	cart    *domain.Cart
	addFn   func(ctx context.Context, owner domain.OwnerKey, in cartsvc.AddItemInput) (*domain.Cart, error)
	addErrs map[string]error
}

func (s *stubCartStore) GetOrCreate(_ context.Context, _ domain.OwnerKey) (*domain.Cart, error) {
	return s.cart, nil
}

func (s *stubCartStore) AddItem(ctx context.Context, owner domain.OwnerKey, in cartsvc.AddItemInput) (*domain.Cart, error) {
	if err, ok := s.addErrs[in.VariantID]; ok {
		return nil, err
	}
	if s.addFn != nil {
		return s.addFn(ctx, owner, in)
	}
	return s.cart, nil
}

type stubProducts struct {
	products map[string]*domain.Product
}

func (s *stubProducts) GetWithVariants(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

type stubOrderRepo struct {
	created      *domain.Order
	clearedCart  string
	createErr    error
	orders       map[string]*domain.Order
	updates      []orderrepo.StatusUpdate
	updateErr    error
	nextOrderSeq int
}

func (s *stubOrderRepo) Create(_ context.Context, o *domain.Order, clearCartID string) (*domain.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextOrderSeq++
	created := *o
	created.ID = fmt.Sprintf("order-%d", s.nextOrderSeq)
	s.created = &created
	s.clearedCart = clearCartID
	return &created, nil
}

func (s *stubOrderRepo) GetByNumber(_ context.Context, number string) (*domain.Order, error) {
	o, ok := s.orders[number]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (s *stubOrderRepo) ListByOwner(_ context.Context, owner domain.OwnerKey) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.orders {
		if owner.Owns(o.UserID, o.GuestToken) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubOrderRepo) UpdateStatus(_ context.Context, in orderrepo.StatusUpdate) (*domain.Order, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updates = append(s.updates, in)
	for _, o := range s.orders {
		if o.ID == in.OrderID {
			updated := *o
			updated.Status = in.NewStatus
			updated.TrackingNumber = in.TrackingNumber
			updated.CancelReason = in.CancelReason
			return &updated, nil
		}
	}
	return nil, domain.ErrNotFound
}

type stubSequence struct {
	next int64
}

func (s *stubSequence) Next(_ context.Context, _ int) (int64, error) {
	return s.next, nil
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func catalog() map[string]*domain.Product {
	return map[string]*domain.Product{
		"p1": {
			ID: "p1", Name: "Classic T-Shirt", BasePrice: money("30.00"), IsActive: true,
			Variants: []domain.Variant{
				{ID: "v1", ProductID: "p1", SKU: "TSHIRT-S", Name: "Small", IsActive: true, StockQuantity: 50},
			},
		},
		"p2": {
			ID: "p2", Name: "Ceramic Mug", BasePrice: money("10.00"), IsActive: true,
			Variants: []domain.Variant{
				{ID: "v2", ProductID: "p2", SKU: "MUG-STD", Name: "Standard", IsActive: true, StockQuantity: 50},
			},
		},
	}
}

func twoLineCart() *domain.Cart {
	return &domain.Cart{
		ID:       "cart-1",
		Currency: "USD",
		Items: []domain.CartItem{
			{ID: "i1", CartID: "cart-1", ProductID: "p1", VariantID: "v1", Quantity: 2, UnitPrice: money("30.00")},
			{ID: "i2", CartID: "cart-1", ProductID: "p2", VariantID: "v2", Quantity: 4, UnitPrice: money("10.00")},
		},
	}
}

func shippingAddress() domain.Address {
	return domain.Address{
		Name: "Ada Lovelace", Line1: "12 Analytical Way", City: "London",
		PostalCode: "N1 9GU", Country: "GB",
	}
}

func newOrderService(repo *stubOrderRepo, carts *stubCartStore, ledger *recordingLedger, seq int64) *Service {
	products := &stubProducts{products: catalog()}
	return New(repo, carts, products, ledger, &stubSequence{next: seq}, nil)
}

func TestCreateEmptyCart(t *testing.T) {
	repo := &stubOrderRepo{}
	carts := &stubCartStore{cart: &domain.Cart{ID: "cart-1", Items: []domain.CartItem{}}}
	svc := newOrderService(repo, carts, &recordingLedger{}, 1)

	_, err := svc.Create(context.Background(), domain.UserKey("u1"), CreateInput{Email: "a@example.com"})
	require.ErrorIs(t, err, domain.ErrCartEmpty)
}

func TestCreateComputesTotalsAndReserves(t *testing.T) {
	repo := &stubOrderRepo{}
	carts := &stubCartStore{cart: twoLineCart()}
	ledger := &recordingLedger{}
	svc := newOrderService(repo, carts, ledger, 42)

	o, err := svc.Create(context.Background(), domain.UserKey("u1"), CreateInput{
		Email:           "ada@example.com",
		ShippingAddress: shippingAddress(),
		ShippingMethod:  "express",
	})
	require.NoError(t, err)

	wantNumber := domain.FormatOrderNumber(time.Now().UTC().Year(), 42)
	assert.Equal(t, wantNumber, o.OrderNumber)
	assert.Equal(t, domain.OrderStatusPending, o.Status)

	// 2 x 30.00 + 4 x 10.00 = 100.00 subtotal; express 15.99; 20% VAT 20.00.
	assert.True(t, o.Subtotal.Equal(money("100.00")), "subtotal %s", o.Subtotal)
	assert.True(t, o.ShippingCost.Equal(money("15.99")), "shipping %s", o.ShippingCost)
	assert.True(t, o.TaxAmount.Equal(money("20.00")), "tax %s", o.TaxAmount)
	assert.True(t, o.Total.Equal(money("135.99")), "total %s", o.Total)

	// Billing defaults to the shipping address.
	assert.Equal(t, o.ShippingAddress, o.BillingAddress)

	// Snapshots carry the cart's captured prices.
	require.Len(t, o.Items, 2)
	assert.Equal(t, "Classic T-Shirt", o.Items[0].ProductName)
	assert.Equal(t, "TSHIRT-S", o.Items[0].SKU)
	assert.True(t, o.Items[0].LineTotal.Equal(money("60.00")))

	assert.Equal(t, []reservation{{"v1", 2}, {"v2", 4}}, ledger.reserved)
	assert.Empty(t, ledger.released)
	assert.Equal(t, "cart-1", repo.clearedCart)
	require.NotNil(t, o.UserID)
	assert.Equal(t, "u1", *o.UserID)
}

func TestCreateTaxRoundsHalfUp(t *testing.T) {
	repo := &stubOrderRepo{}
	cart := &domain.Cart{
		ID:       "cart-1",
		Currency: "USD",
		Items: []domain.CartItem{
			// 3 x 10.21 = 30.63; 20% = 6.126 which rounds up to 6.13.
			{ID: "i1", CartID: "cart-1", ProductID: "p2", VariantID: "v2", Quantity: 3, UnitPrice: money("10.21")},
		},
	}
	svc := newOrderService(repo, &stubCartStore{cart: cart}, &recordingLedger{}, 1)

	o, err := svc.Create(context.Background(), domain.UserKey("u1"), CreateInput{
		Email:           "ada@example.com",
		ShippingAddress: shippingAddress(),
		ShippingMethod:  "free",
	})
	require.NoError(t, err)
	assert.True(t, o.TaxAmount.Equal(money("6.13")), "tax %s", o.TaxAmount)
	assert.True(t, o.Total.Equal(money("36.76")), "total %s", o.Total)
}

func TestCreateUnknownShippingMethodUsesDefaultRate(t *testing.T) {
	repo := &stubOrderRepo{}
	svc := newOrderService(repo, &stubCartStore{cart: twoLineCart()}, &recordingLedger{}, 1)

	o, err := svc.Create(context.Background(), domain.UserKey("u1"), CreateInput{
		Email:           "ada@example.com",
		ShippingAddress: shippingAddress(),
		ShippingMethod:  "carrier-pigeon",
	})
	require.NoError(t, err)
	assert.True(t, o.ShippingCost.Equal(money("9.99")), "shipping %s", o.ShippingCost)
}

func TestCreateReleasesEarlierReservationsOnFailure(t *testing.T) {
	repo := &stubOrderRepo{}
	ledger := &recordingLedger{failVariant: "v2", failAvail: 1}
	svc := newOrderService(repo, &stubCartStore{cart: twoLineCart()}, ledger, 1)

	_, err := svc.Create(context.Background(), domain.UserKey("u1"), CreateInput{
		Email:           "ada@example.com",
		ShippingAddress: shippingAddress(),
	})

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "Ceramic Mug", insufficient.ProductName)
	assert.Equal(t, 1, insufficient.Available)

	// The v1 reservation made before the failure must come back.
	assert.Equal(t, []reservation{{"v1", 2}}, ledger.reserved)
	assert.Equal(t, []reservation{{"v1", 2}}, ledger.released)
	assert.Nil(t, repo.created)
}

func TestCreateReleasesEverythingWhenPersistFails(t *testing.T) {
	repo := &stubOrderRepo{createErr: errors.New("connection reset")}
	ledger := &recordingLedger{}
	svc := newOrderService(repo, &stubCartStore{cart: twoLineCart()}, ledger, 1)

	_, err := svc.Create(context.Background(), domain.UserKey("u1"), CreateInput{
		Email:           "ada@example.com",
		ShippingAddress: shippingAddress(),
	})
	require.Error(t, err)
	assert.Equal(t, []reservation{{"v1", 2}, {"v2", 4}}, ledger.released)
}

func TestCreateRejectsInactiveProduct(t *testing.T) {
	repo := &stubOrderRepo{}
	carts := &stubCartStore{cart: twoLineCart()}
	ledger := &recordingLedger{}
	svc := newOrderService(repo, carts, ledger, 1)
	svc.products.(*stubProducts).products["p1"].IsActive = false

	_, err := svc.Create(context.Background(), domain.UserKey("u1"), CreateInput{
		Email:           "ada@example.com",
		ShippingAddress: shippingAddress(),
	})
	require.ErrorIs(t, err, domain.ErrProductUnavailable)
	assert.Empty(t, ledger.reserved)
}

func userOrder(status domain.OrderStatus) *domain.Order {
	userID := "u1"
	return &domain.Order{
		ID:          "order-1",
		OrderNumber: "ORD-2026-000042",
		UserID:      &userID,
		Status:      status,
		Items: []domain.OrderItem{
			{ProductID: "p1", VariantID: "v1", Quantity: 2},
			{ProductID: "p2", VariantID: "v2", Quantity: 4},
		},
	}
}

func TestCancelRestoresExactQuantities(t *testing.T) {
	o := userOrder(domain.OrderStatusPaid)
	repo := &stubOrderRepo{orders: map[string]*domain.Order{o.OrderNumber: o}}
	ledger := &recordingLedger{}
	svc := newOrderService(repo, &stubCartStore{}, ledger, 1)

	cancelled, err := svc.Cancel(context.Background(), domain.UserKey("u1"), o.OrderNumber, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, "changed my mind", cancelled.CancelReason)
	assert.Equal(t, []reservation{{"v1", 2}, {"v2", 4}}, ledger.released)

	require.Len(t, repo.updates, 1)
	assert.Equal(t, domain.OrderStatusPaid, repo.updates[0].ExpectedStatus)
}

func TestCancelShippedOrderRejected(t *testing.T) {
	o := userOrder(domain.OrderStatusShipped)
	repo := &stubOrderRepo{orders: map[string]*domain.Order{o.OrderNumber: o}}
	ledger := &recordingLedger{}
	svc := newOrderService(repo, &stubCartStore{}, ledger, 1)

	_, err := svc.Cancel(context.Background(), domain.UserKey("u1"), o.OrderNumber, "")
	require.ErrorIs(t, err, domain.ErrOrderNotCancellable)
	assert.Empty(t, ledger.released)
}

func TestCancelLosingStatusRaceRejected(t *testing.T) {
	o := userOrder(domain.OrderStatusPaid)
	repo := &stubOrderRepo{
		orders:    map[string]*domain.Order{o.OrderNumber: o},
		updateErr: orderrepo.ErrStaleStatus,
	}
	ledger := &recordingLedger{}
	svc := newOrderService(repo, &stubCartStore{}, ledger, 1)

	_, err := svc.Cancel(context.Background(), domain.UserKey("u1"), o.OrderNumber, "")
	require.ErrorIs(t, err, domain.ErrOrderNotCancellable)
	assert.Empty(t, ledger.released)
}

func TestCancelByOtherOwnerDenied(t *testing.T) {
	o := userOrder(domain.OrderStatusPending)
	repo := &stubOrderRepo{orders: map[string]*domain.Order{o.OrderNumber: o}}
	svc := newOrderService(repo, &stubCartStore{}, &recordingLedger{}, 1)

	_, err := svc.Cancel(context.Background(), domain.UserKey("u2"), o.OrderNumber, "")
	require.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestStatusAdvancesForwardOnly(t *testing.T) {
	o := userOrder(domain.OrderStatusPending)
	repo := &stubOrderRepo{orders: map[string]*domain.Order{o.OrderNumber: o}}
	svc := newOrderService(repo, &stubCartStore{}, &recordingLedger{}, 1)

	_, err := svc.MarkDelivered(context.Background(), o.OrderNumber)
	require.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	_, err = svc.MarkShipped(context.Background(), o.OrderNumber, "TRACK-1")
	require.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	paid, err := svc.MarkPaid(context.Background(), o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, paid.Status)
}

func TestMarkShippedRecordsTracking(t *testing.T) {
	o := userOrder(domain.OrderStatusPaid)
	repo := &stubOrderRepo{orders: map[string]*domain.Order{o.OrderNumber: o}}
	svc := newOrderService(repo, &stubCartStore{}, &recordingLedger{}, 1)

	shipped, err := svc.MarkShipped(context.Background(), o.OrderNumber, "TRACK-99")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, shipped.Status)
	assert.Equal(t, "TRACK-99", shipped.TrackingNumber)
}

func TestGetByNumberOwnership(t *testing.T) {
	o := userOrder(domain.OrderStatusPending)
	repo := &stubOrderRepo{orders: map[string]*domain.Order{o.OrderNumber: o}}
	svc := newOrderService(repo, &stubCartStore{}, &recordingLedger{}, 1)

	_, err := svc.GetByNumber(context.Background(), domain.UserKey("u2"), o.OrderNumber, false)
	require.ErrorIs(t, err, domain.ErrAccessDenied)

	// Admin lookups bypass the ownership check.
	got, err := svc.GetByNumber(context.Background(), domain.UserKey("u2"), o.OrderNumber, true)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)

	_, err = svc.GetByNumber(context.Background(), domain.UserKey("u1"), "ORD-2026-999999", false)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

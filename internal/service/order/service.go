package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"
	cartsvc "storefront/internal/service/cart"
)

// Flat VAT applied to the subtotal, rounded half-up to two decimals.
var taxRate = decimal.RequireFromString("0.20")

// Static shipping cost table. Unknown methods fall back to the default rate.
var (
	shippingRates = map[string]decimal.Decimal{
		"express":  decimal.RequireFromString("15.99"),
		"standard": decimal.RequireFromString("5.99"),
		"free":     decimal.RequireFromString("0.00"),
	}
	defaultShippingRate = decimal.RequireFromString("9.99")
)

// ShippingCostFor returns the flat rate for a shipping method.
func ShippingCostFor(method string) decimal.Decimal {
	if rate, ok := shippingRates[method]; ok {
		return rate
	}
	return defaultShippingRate
}

type Service struct {
	repo     orderRepo
	carts    cartStore
	products productRepo
	stock    stockLedger
	seq      sequenceRepo
	logger   *log.Logger
}

type orderRepo interface {
	Create(ctx context.Context, o *domain.Order, clearCartID string) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListByOwner(ctx context.Context, owner domain.OwnerKey) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, in orderrepo.StatusUpdate) (*domain.Order, error)
}

type cartStore interface {
	GetOrCreate(ctx context.Context, owner domain.OwnerKey) (*domain.Cart, error)
	AddItem(ctx context.Context, owner domain.OwnerKey, in cartsvc.AddItemInput) (*domain.Cart, error)
}

type productRepo interface {
	GetWithVariants(ctx context.Context, id string) (*domain.Product, error)
}

type stockLedger interface {
	TryReserve(ctx context.Context, variantID string, quantity int) error
	Release(ctx context.Context, variantID string, quantity int) error
	CurrentStock(ctx context.Context, variantID string) (int, error)
}

type sequenceRepo interface {
	Next(ctx context.Context, year int) (int64, error)
}

func New(repo orderRepo, carts cartStore, products productRepo, stock stockLedger, seq sequenceRepo, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, carts: carts, products: products, stock: stock, seq: seq, logger: logger}
}

type CreateInput struct {
	Email           string
	Phone           string
	ShippingAddress domain.Address
	BillingAddress  *domain.Address // nil copies the shipping address
	ShippingMethod  string
	Notes           string
	DiscountAmount  decimal.Decimal
}

// Create converts the owner's cart into an order: it validates every line,
// allocates an order number, reserves stock all-or-nothing, snapshots the
// lines, computes totals and persists order plus initial event while
// clearing the cart in one transaction. Any failure after a reservation
// releases everything reserved so far.
func (s *Service) Create(ctx context.Context, owner domain.OwnerKey, in CreateInput) (*domain.Order, error) {
	cart, err := s.carts.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrCartEmpty
	}

	type resolvedLine struct {
		item    domain.CartItem
		product *domain.Product
		variant *domain.Variant
	}

	lines := make([]resolvedLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, err := s.products.GetWithVariants(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrProductUnavailable
			}
			return nil, err
		}
		if !product.IsActive {
			return nil, domain.ErrProductUnavailable
		}
		variant := product.FindVariant(item.VariantID)
		if variant == nil || !variant.IsActive {
			return nil, domain.ErrVariantUnavailable
		}
		// Advisory check; the reservation below is authoritative.
		if variant.StockQuantity < item.Quantity {
			return nil, &domain.InsufficientStockError{
				ProductName: product.Name,
				VariantID:   variant.ID,
				Available:   variant.StockQuantity,
			}
		}
		lines = append(lines, resolvedLine{item: item, product: product, variant: variant})
	}

	year := time.Now().UTC().Year()
	seq, err := s.seq.Next(ctx, year)
	if err != nil {
		return nil, err
	}
	number := domain.FormatOrderNumber(year, seq)

	reserved := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		if err := s.stock.TryReserve(ctx, line.variant.ID, line.item.Quantity); err != nil {
			s.releaseAll(ctx, number, reserved)
			var insufficient *domain.InsufficientStockError
			if errors.As(err, &insufficient) {
				insufficient.ProductName = line.product.Name
				return nil, insufficient
			}
			return nil, err
		}
		unitPrice := line.item.UnitPrice
		reserved = append(reserved, domain.OrderItem{
			ProductID:   line.product.ID,
			VariantID:   line.variant.ID,
			ProductName: line.product.Name,
			VariantName: line.variant.Name,
			SKU:         line.variant.SKU,
			Quantity:    line.item.Quantity,
			UnitPrice:   unitPrice,
			LineTotal:   unitPrice.Mul(decimal.NewFromInt(int64(line.item.Quantity))),
		})
	}

	subtotal := decimal.Zero
	for _, it := range reserved {
		subtotal = subtotal.Add(it.LineTotal)
	}
	shippingCost := ShippingCostFor(in.ShippingMethod)
	taxAmount := subtotal.Mul(taxRate).Round(2)
	discount := in.DiscountAmount
	total := subtotal.Add(shippingCost).Add(taxAmount).Sub(discount)

	billing := in.ShippingAddress
	if in.BillingAddress != nil {
		billing = *in.BillingAddress
	}

	o := &domain.Order{
		OrderNumber:     number,
		Email:           in.Email,
		Phone:           in.Phone,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  billing,
		ShippingMethod:  in.ShippingMethod,
		Currency:        cart.Currency,
		Subtotal:        subtotal,
		ShippingCost:    shippingCost,
		TaxAmount:       taxAmount,
		DiscountAmount:  discount,
		Total:           total,
		Status:          domain.OrderStatusPending,
		Notes:           in.Notes,
		Items:           reserved,
	}
	if owner.IsUser() {
		o.UserID = &owner.UserID
	} else {
		o.GuestToken = &owner.GuestToken
	}

	created, err := s.repo.Create(ctx, o, cart.ID)
	if err != nil {
		// Compensating release: the order was not persisted, so every
		// reservation made above must come back.
		s.releaseAll(ctx, number, reserved)
		return nil, err
	}
	return created, nil
}

// releaseAll undoes reservations after a failed order creation. A release
// that itself fails leaves the ledger short; that is a stock-integrity
// emergency and is logged as such.
func (s *Service) releaseAll(ctx context.Context, number string, reserved []domain.OrderItem) {
	for _, it := range reserved {
		if err := s.stock.Release(ctx, it.VariantID, it.Quantity); err != nil {
			s.logger.Printf("STOCK INTEGRITY: failed to release reservation order=%s variant=%s qty=%d error=%v",
				number, it.VariantID, it.Quantity, err)
		}
	}
}

// Cancel cancels a pending or paid order and restores exactly the reserved
// quantities to the ledger, keyed by variant id regardless of the variant's
// current active flag.
func (s *Service) Cancel(ctx context.Context, owner domain.OwnerKey, number, reason string) (*domain.Order, error) {
	o, err := s.getOwned(ctx, owner, number)
	if err != nil {
		return nil, err
	}
	if !o.CanBeCancelled() {
		return nil, domain.ErrOrderNotCancellable
	}

	description := "order cancelled"
	if reason != "" {
		description = fmt.Sprintf("order cancelled: %s", reason)
	}
	updated, err := s.repo.UpdateStatus(ctx, orderrepo.StatusUpdate{
		OrderID:        o.ID,
		ExpectedStatus: o.Status,
		NewStatus:      domain.OrderStatusCancelled,
		CancelReason:   reason,
		Description:    description,
	})
	if err != nil {
		if errors.Is(err, orderrepo.ErrStaleStatus) {
			return nil, domain.ErrOrderNotCancellable
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	for _, it := range updated.Items {
		if err := s.stock.Release(ctx, it.VariantID, it.Quantity); err != nil {
			s.logger.Printf("STOCK INTEGRITY: failed to restore stock order=%s variant=%s qty=%d error=%v",
				updated.OrderNumber, it.VariantID, it.Quantity, err)
		}
	}
	return updated, nil
}

// MarkPaid, MarkShipped and MarkDelivered advance the status forward with no
// stock side effects.

func (s *Service) MarkPaid(ctx context.Context, number string) (*domain.Order, error) {
	return s.advance(ctx, number, domain.OrderStatusPaid, "", "payment received")
}

func (s *Service) MarkShipped(ctx context.Context, number, trackingNumber string) (*domain.Order, error) {
	return s.advance(ctx, number, domain.OrderStatusShipped, trackingNumber, "order shipped")
}

func (s *Service) MarkDelivered(ctx context.Context, number string) (*domain.Order, error) {
	return s.advance(ctx, number, domain.OrderStatusDelivered, "", "order delivered")
}

func (s *Service) advance(ctx context.Context, number string, next domain.OrderStatus, tracking, description string) (*domain.Order, error) {
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, domain.ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, orderrepo.StatusUpdate{
		OrderID:        o.ID,
		ExpectedStatus: o.Status,
		NewStatus:      next,
		TrackingNumber: tracking,
		Description:    description,
	})
	if err != nil {
		if errors.Is(err, orderrepo.ErrStaleStatus) {
			return nil, domain.ErrInvalidStatusTransition
		}
		return nil, err
	}
	return updated, nil
}

// GetByNumber returns an order to its owner, or to an admin.
func (s *Service) GetByNumber(ctx context.Context, owner domain.OwnerKey, number string, admin bool) (*domain.Order, error) {
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	if !admin && !owner.Owns(o.UserID, o.GuestToken) {
		return nil, domain.ErrAccessDenied
	}
	return o, nil
}

// List returns the owner's orders, newest first.
func (s *Service) List(ctx context.Context, owner domain.OwnerKey) ([]domain.Order, error) {
	return s.repo.ListByOwner(ctx, owner)
}

func (s *Service) getOwned(ctx context.Context, owner domain.OwnerKey, number string) (*domain.Order, error) {
	return s.GetByNumber(ctx, owner, number, false)
}

package cart

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// ErrStaleVersion is returned by SetItemQuantity when the cart's version
// changed between the caller's read and the write. Callers re-read and
// retry.
var ErrStaleVersion = errors.New("cart changed concurrently")

type CreateCartInput struct {
	UserID     *string
	GuestToken *string
	Currency   string
}

type AddItemInput struct {
	ProductID string
	VariantID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Repository persists cart aggregates. AddItem merges into an existing
// (product, variant) line while holding the variant's stock row lock, so a
// cart never holds two lines for the same variant and the merged quantity
// can never exceed current stock; the refusal carries
// *domain.InsufficientStockError. SetItemQuantity is guarded by the cart
// version the caller last read and fails with ErrStaleVersion when another
// writer got there first.
type Repository interface {
	Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error)
	GetByOwner(ctx context.Context, owner domain.OwnerKey) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID string, in AddItemInput) error
	SetItemQuantity(ctx context.Context, cartID, itemID string, quantity, expectedVersion int) error
	RemoveItem(ctx context.Context, cartID, itemID string) error
	Clear(ctx context.Context, cartID string) error
	Delete(ctx context.Context, cartID string) error
}

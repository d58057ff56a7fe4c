package domain

import (
	"errors"
	"fmt"
)

// Expected domain outcomes. Handlers map these to user-facing HTTP statuses;
// anything not in this list is treated as an infrastructure failure.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	ErrCartNotFound            = errors.New("cart not found")
	ErrCartEmpty               = errors.New("cart is empty")
	ErrItemNotFound            = errors.New("cart item not found")
	ErrProductUnavailable      = errors.New("product is not available")
	ErrVariantUnavailable      = errors.New("variant is not available")
	ErrNoAvailableVariant      = errors.New("product has no available variant")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrOrderNotFound           = errors.New("order not found")
	ErrOrderNotCancellable     = errors.New("order can no longer be cancelled")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrAccessDenied            = errors.New("access denied")
	ErrGuestSessionRequired    = errors.New("guest session required")
)

// InsufficientStockError reports how many units are actually available for
// the variant that failed a stock check. It unwraps to ErrInsufficientStock
// so callers can match the class with errors.Is.
type InsufficientStockError struct {
	ProductName string
	VariantID   string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	if e.ProductName != "" {
		return fmt.Sprintf("insufficient stock for %s: %d available", e.ProductName, e.Available)
	}
	return fmt.Sprintf("insufficient stock: %d available", e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

package stock

import "context"

// Ledger is the only component allowed to change a variant's stock quantity.
//
// TryReserve must be atomic per variant with respect to concurrent
// reservations: it either decrements stock by quantity or fails with
// domain.InsufficientStockError, never oversells. Release restores quantity
// and is used on cancellation and on order-creation rollback; callers only
// release what they previously reserved. CurrentStock is a display snapshot
// and must not be used to decide a reservation.
type Ledger interface {
	TryReserve(ctx context.Context, variantID string, quantity int) error
	Release(ctx context.Context, variantID string, quantity int) error
	CurrentStock(ctx context.Context, variantID string) (int, error)
}

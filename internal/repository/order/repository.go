package order

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

// ErrStaleStatus is returned by UpdateStatus when the order's status changed
// between the caller's read and the update.
var ErrStaleStatus = errors.New("order status changed concurrently")

// StatusUpdate advances an order's status with a guard on the status the
// caller last observed, and appends the audit event in the same transaction.
type StatusUpdate struct {
	OrderID        string
	ExpectedStatus domain.OrderStatus
	NewStatus      domain.OrderStatus
	TrackingNumber string
	CancelReason   string
	Description    string
	Note           string
}

// Repository persists order aggregates. Create stores the order, its item
// snapshots and the initial event, and clears the source cart, all in one
// transaction.
type Repository interface {
	Create(ctx context.Context, o *domain.Order, clearCartID string) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListByOwner(ctx context.Context, owner domain.OwnerKey) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, in StatusUpdate) (*domain.Order, error)
}

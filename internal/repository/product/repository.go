package product

import (
	"context"

	"storefront/internal/domain"
)

// Repository is the read-only catalog lookup consumed by the cart and order
// services. Stock mutation goes through the stock ledger, never here.
type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetWithVariants(ctx context.Context, id string) (*domain.Product, error)
}

package sequence

import "context"

// Repository hands out strictly increasing per-year sequence values for
// order numbering. Next must be safe under concurrent order creation:
// two concurrent calls for the same year never return the same value.
type Repository interface {
	Next(ctx context.Context, year int) (int64, error)
}

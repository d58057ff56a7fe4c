package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

// Next atomically increments the per-year counter. The upsert serializes on
// the year row, so counting existing orders (which races) is never needed.
func (r *postgresRepo) Next(ctx context.Context, year int) (int64, error) {
	const q = `
INSERT INTO order_sequences (year, last_value)
VALUES ($1, 1)
ON CONFLICT (year) DO UPDATE SET last_value = order_sequences.last_value + 1
RETURNING last_value
`
	var value int64
	if err := r.pool.QueryRow(ctx, q, year).Scan(&value); err != nil {
		return 0, fmt.Errorf("next order sequence year=%d: %w", year, err)
	}
	return value, nil
}

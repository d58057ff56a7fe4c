package stock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
)

type postgresLedger struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Ledger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresLedger{pool: pool, logger: logger}
}

// TryReserve decrements stock with a single conditional UPDATE so two
// concurrent reservations of the last units cannot both succeed. A
// read-then-write here would race under concurrent checkout.
func (l *postgresLedger) TryReserve(ctx context.Context, variantID string, quantity int) error {
	const q = `
UPDATE product_variants
SET stock_quantity = stock_quantity - $2
WHERE id = $1 AND stock_quantity >= $2
`
	cmd, err := l.pool.Exec(ctx, q, variantID, quantity)
	if err != nil {
		return fmt.Errorf("reserve stock variant=%s: %w", variantID, err)
	}
	if cmd.RowsAffected() == 0 {
		available, err := l.CurrentStock(ctx, variantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrVariantUnavailable
			}
			return err
		}
		l.logger.Printf("stock ledger: reserve refused variant=%s requested=%d available=%d", variantID, quantity, available)
		return &domain.InsufficientStockError{VariantID: variantID, Available: available}
	}
	return nil
}

// Release increments stock unconditionally. The variant row must still
// exist, but its active flag is irrelevant: cancellations restore stock to
// deactivated variants too.
func (l *postgresLedger) Release(ctx context.Context, variantID string, quantity int) error {
	const q = `
UPDATE product_variants
SET stock_quantity = stock_quantity + $2
WHERE id = $1
`
	cmd, err := l.pool.Exec(ctx, q, variantID, quantity)
	if err != nil {
		return fmt.Errorf("release stock variant=%s: %w", variantID, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("release stock variant=%s: %w", variantID, domain.ErrNotFound)
	}
	return nil
}

func (l *postgresLedger) CurrentStock(ctx context.Context, variantID string) (int, error) {
	const q = `
SELECT stock_quantity
FROM product_variants
WHERE id = $1
`
	var qty int
	if err := l.pool.QueryRow(ctx, q, variantID).Scan(&qty); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return qty, nil
}

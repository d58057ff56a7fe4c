package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const cartColumns = `id::text, user_id::text, guest_token, currency, version, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (user_id, guest_token, currency)
VALUES ($1, $2, $3)
RETURNING ` + cartColumns + `
`
	var cart domain.Cart
	err := r.pool.QueryRow(ctx, q, in.UserID, in.GuestToken, in.Currency).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.GuestToken,
		&cart.Currency,
		&cart.Version,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cart.Items = []domain.CartItem{}
	return &cart, nil
}

func (r *postgresRepo) GetByOwner(ctx context.Context, owner domain.OwnerKey) (*domain.Cart, error) {
	if owner.IsUser() {
		return r.fetchCart(ctx, `
SELECT `+cartColumns+`
FROM carts
WHERE user_id = $1
`, owner.UserID)
	}
	return r.fetchCart(ctx, `
SELECT `+cartColumns+`
FROM carts
WHERE guest_token = $1
`, owner.GuestToken)
}

func (r *postgresRepo) AddItem(ctx context.Context, cartID string, in AddItemInput) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Lock the variant's stock row so concurrent adds of the same variant
	// serialize here; the merged line quantity can never exceed what was in
	// stock when the lock was granted.
	var available int
	if err := tx.QueryRow(ctx, `
SELECT stock_quantity
FROM product_variants
WHERE id = $1
FOR UPDATE
`, in.VariantID).Scan(&available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrVariantUnavailable
		}
		return err
	}

	var existing int
	if err := tx.QueryRow(ctx, `
SELECT COALESCE(sum(quantity), 0)
FROM cart_items
WHERE cart_id = $1 AND product_id = $2 AND variant_id = $3
`, cartID, in.ProductID, in.VariantID).Scan(&existing); err != nil {
		return err
	}
	if available < existing+in.Quantity {
		return &domain.InsufficientStockError{VariantID: in.VariantID, Available: available}
	}

	// Merge with any existing line for the same (product, variant). The
	// captured unit price of the first add wins.
	if _, err := tx.Exec(ctx, `
INSERT INTO cart_items (cart_id, product_id, variant_id, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (cart_id, product_id, variant_id)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
`, cartID, in.ProductID, in.VariantID, in.Quantity, in.UnitPrice); err != nil {
		return err
	}

	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *postgresRepo) SetItemQuantity(ctx context.Context, cartID, itemID string, quantity, expectedVersion int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Compare-and-bump the version first. This also takes the cart's row
	// lock, so absolute writes serialize per cart.
	cmd, err := tx.Exec(ctx, `
UPDATE carts
SET version = version + 1,
    updated_at = now()
WHERE id = $1 AND version = $2
`, cartID, expectedVersion)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)
`, cartID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return ErrStaleVersion
	}

	if quantity <= 0 {
		cmd, err := tx.Exec(ctx, `
DELETE FROM cart_items
WHERE id = $1 AND cart_id = $2
`, itemID, cartID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
	} else {
		cmd, err := tx.Exec(ctx, `
UPDATE cart_items
SET quantity = $1
WHERE id = $2 AND cart_id = $3
`, quantity, itemID, cartID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
	}

	return tx.Commit(ctx)
}

func (r *postgresRepo) RemoveItem(ctx context.Context, cartID, itemID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
DELETE FROM cart_items
WHERE id = $1 AND cart_id = $2
`, itemID, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *postgresRepo) Clear(ctx context.Context, cartID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
DELETE FROM cart_items
WHERE cart_id = $1
`, cartID); err != nil {
		return err
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *postgresRepo) Delete(ctx context.Context, cartID string) error {
	_, err := r.pool.Exec(ctx, `
DELETE FROM carts
WHERE id = $1
`, cartID)
	return err
}

func (r *postgresRepo) fetchCart(ctx context.Context, cartQuery string, args ...interface{}) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.pool.QueryRow(ctx, cartQuery, args...).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.GuestToken,
		&cart.Currency,
		&cart.Version,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const itemsQuery = `
SELECT id::text, cart_id::text, product_id::text, variant_id::text, quantity, unit_price, created_at
FROM cart_items
WHERE cart_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, itemsQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cart.Items = []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.VariantID,
			&item.Quantity,
			&item.UnitPrice,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &cart, nil
}

// touchCart bumps the version stamp for mutations that do not carry an
// expected version of their own (additive merges, removals, clears).
func touchCart(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `
UPDATE carts
SET version = version + 1,
    updated_at = now()
WHERE id = $1
`, cartID)
	return err
}

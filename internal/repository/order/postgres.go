package order

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

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const orderColumns = `
id::text, order_number, user_id::text, guest_token, email, COALESCE(phone, ''),
ship_name, ship_line1, COALESCE(ship_line2, ''), ship_city, COALESCE(ship_state, ''), ship_postal_code, ship_country, COALESCE(ship_phone, ''),
bill_name, bill_line1, COALESCE(bill_line2, ''), bill_city, COALESCE(bill_state, ''), bill_postal_code, bill_country, COALESCE(bill_phone, ''),
shipping_method, currency, subtotal, shipping_cost, tax_amount, discount_amount, total,
status, COALESCE(tracking_number, ''), COALESCE(notes, ''), COALESCE(cancel_reason, ''),
paid_at, shipped_at, delivered_at, cancelled_at, created_at`

func (r *postgresRepo) Create(ctx context.Context, o *domain.Order, clearCartID string) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const insertOrder = `
INSERT INTO orders (
	order_number, user_id, guest_token, email, phone,
	ship_name, ship_line1, ship_line2, ship_city, ship_state, ship_postal_code, ship_country, ship_phone,
	bill_name, bill_line1, bill_line2, bill_city, bill_state, bill_postal_code, bill_country, bill_phone,
	shipping_method, currency, subtotal, shipping_cost, tax_amount, discount_amount, total, status, notes
)
VALUES (
	$1, $2, $3, $4, NULLIF($5, ''),
	$6, $7, NULLIF($8, ''), $9, NULLIF($10, ''), $11, $12, NULLIF($13, ''),
	$14, $15, NULLIF($16, ''), $17, NULLIF($18, ''), $19, $20, NULLIF($21, ''),
	$22, $23, $24, $25, $26, $27, $28, $29, NULLIF($30, '')
)
RETURNING id::text, created_at
`
	ship, bill := o.ShippingAddress, o.BillingAddress
	if err := tx.QueryRow(ctx, insertOrder,
		o.OrderNumber, o.UserID, o.GuestToken, o.Email, o.Phone,
		ship.Name, ship.Line1, ship.Line2, ship.City, ship.State, ship.PostalCode, ship.Country, ship.Phone,
		bill.Name, bill.Line1, bill.Line2, bill.City, bill.State, bill.PostalCode, bill.Country, bill.Phone,
		o.ShippingMethod, o.Currency, o.Subtotal, o.ShippingCost, o.TaxAmount, o.DiscountAmount, o.Total,
		string(o.Status), o.Notes,
	).Scan(&o.ID, &o.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert order %s: %w", o.OrderNumber, err)
	}

	const insertItem = `
INSERT INTO order_items (order_id, product_id, variant_id, product_name, variant_name, sku, quantity, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id::text
`
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		if err := tx.QueryRow(ctx, insertItem,
			o.ID, it.ProductID, it.VariantID, it.ProductName, it.VariantName, it.SKU,
			it.Quantity, it.UnitPrice, it.LineTotal,
		).Scan(&it.ID); err != nil {
			return nil, fmt.Errorf("insert order item sku=%s: %w", it.SKU, err)
		}
	}

	if err := insertEvent(ctx, tx, o.ID, string(o.Status), "order placed", o.Notes); err != nil {
		return nil, err
	}

	if clearCartID != "" {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, clearCartID); err != nil {
			return nil, fmt.Errorf("clear cart %s: %w", clearCartID, err)
		}
		if _, err := tx.Exec(ctx, `
UPDATE carts SET version = version + 1, updated_at = now() WHERE id = $1
`, clearCartID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: created order_number=%s items=%d total=%s", o.OrderNumber, len(o.Items), o.Total)
	return r.GetByID(ctx, o.ID)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.fetchOrder(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE id = $1
`, id)
}

func (r *postgresRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.fetchOrder(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE order_number = $1
`, number)
}

func (r *postgresRepo) ListByOwner(ctx context.Context, owner domain.OwnerKey) ([]domain.Order, error) {
	var (
		q   string
		arg string
	)
	if owner.IsUser() {
		q = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
		arg = owner.UserID
	} else {
		q = `SELECT ` + orderColumns + ` FROM orders WHERE guest_token = $1 ORDER BY created_at DESC`
		arg = owner.GuestToken
	}

	rows, err := r.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		if err := r.loadItems(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, in StatusUpdate) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var stampColumn string
	switch in.NewStatus {
	case domain.OrderStatusPaid:
		stampColumn = "paid_at"
	case domain.OrderStatusShipped:
		stampColumn = "shipped_at"
	case domain.OrderStatusDelivered:
		stampColumn = "delivered_at"
	case domain.OrderStatusCancelled:
		stampColumn = "cancelled_at"
	default:
		return nil, fmt.Errorf("unsupported status %q", in.NewStatus)
	}

	q := fmt.Sprintf(`
UPDATE orders
SET status = $1,
    %s = now(),
    tracking_number = COALESCE(NULLIF($2, ''), tracking_number),
    cancel_reason = COALESCE(NULLIF($3, ''), cancel_reason)
WHERE id = $4 AND status = $5
`, stampColumn)
	cmd, err := tx.Exec(ctx, q, string(in.NewStatus), in.TrackingNumber, in.CancelReason, in.OrderID, string(in.ExpectedStatus))
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		// Either the order vanished or someone advanced it first.
		var current string
		if scanErr := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, in.OrderID).Scan(&current); scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, scanErr
		}
		return nil, ErrStaleStatus
	}

	if err := insertEvent(ctx, tx, in.OrderID, string(in.NewStatus), in.Description, in.Note); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, in.OrderID)
}

func insertEvent(ctx context.Context, tx pgx.Tx, orderID, status, description, note string) error {
	_, err := tx.Exec(ctx, `
INSERT INTO order_events (order_id, status, description, note)
VALUES ($1, $2, $3, NULLIF($4, ''))
`, orderID, status, description, note)
	if err != nil {
		return fmt.Errorf("insert order event: %w", err)
	}
	return nil
}

func (r *postgresRepo) fetchOrder(ctx context.Context, q string, args ...interface{}) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, q, args...)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	if err := r.loadEvents(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) loadItems(ctx context.Context, o *domain.Order) error {
	const q = `
SELECT id::text, order_id::text, product_id::text, variant_id::text, product_name, variant_name, sku, quantity, unit_price, line_total
FROM order_items
WHERE order_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, q, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	o.Items = []domain.OrderItem{}
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.VariantID,
			&it.ProductName, &it.VariantName, &it.SKU,
			&it.Quantity, &it.UnitPrice, &it.LineTotal,
		); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (r *postgresRepo) loadEvents(ctx context.Context, o *domain.Order) error {
	const q = `
SELECT id::text, order_id::text, status, description, COALESCE(note, ''), created_at
FROM order_events
WHERE order_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, q, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	o.Events = []domain.OrderEvent{}
	for rows.Next() {
		var ev domain.OrderEvent
		var status string
		if err := rows.Scan(&ev.ID, &ev.OrderID, &status, &ev.Description, &ev.Note, &ev.CreatedAt); err != nil {
			return err
		}
		ev.Status = domain.OrderStatus(status)
		o.Events = append(o.Events, ev)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var status string
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.GuestToken, &o.Email, &o.Phone,
		&o.ShippingAddress.Name, &o.ShippingAddress.Line1, &o.ShippingAddress.Line2,
		&o.ShippingAddress.City, &o.ShippingAddress.State, &o.ShippingAddress.PostalCode,
		&o.ShippingAddress.Country, &o.ShippingAddress.Phone,
		&o.BillingAddress.Name, &o.BillingAddress.Line1, &o.BillingAddress.Line2,
		&o.BillingAddress.City, &o.BillingAddress.State, &o.BillingAddress.PostalCode,
		&o.BillingAddress.Country, &o.BillingAddress.Phone,
		&o.ShippingMethod, &o.Currency, &o.Subtotal, &o.ShippingCost, &o.TaxAmount, &o.DiscountAmount, &o.Total,
		&status, &o.TrackingNumber, &o.Notes, &o.CancelReason,
		&o.PaidAt, &o.ShippedAt, &o.DeliveredAt, &o.CancelledAt, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	return &o, nil
}

package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type variantSeed struct {
	SKU             string
	Name            string
	PriceAdjustment string
	Stock           int
}

type productSeed struct {
	Name        string
	Description string
	BasePrice   string
	Currency    string
	Variants    []variantSeed
}

// Apply inserts basic seed data for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	products := []productSeed{
		{
			Name:        "Classic T-Shirt",
			Description: "Soft cotton tee",
			BasePrice:   "19.99",
			Currency:    "USD",
			Variants: []variantSeed{
				{SKU: "TSHIRT-S", Name: "Small", PriceAdjustment: "0.00", Stock: 25},
				{SKU: "TSHIRT-M", Name: "Medium", PriceAdjustment: "0.00", Stock: 40},
				{SKU: "TSHIRT-XL", Name: "X-Large", PriceAdjustment: "2.00", Stock: 10},
			},
		},
		{
			Name:        "Ceramic Mug",
			Description: "Stoneware mug, 350ml",
			BasePrice:   "12.99",
			Currency:    "USD",
			Variants: []variantSeed{
				{SKU: "MUG-WHITE", Name: "White", PriceAdjustment: "0.00", Stock: 60},
				{SKU: "MUG-BLACK", Name: "Black", PriceAdjustment: "1.50", Stock: 5},
			},
		},
		{
			Name:        "Canvas Tote",
			Description: "Heavy-duty canvas tote bag",
			BasePrice:   "24.50",
			Currency:    "USD",
			Variants: []variantSeed{
				{SKU: "TOTE-NATURAL", Name: "Natural", PriceAdjustment: "0.00", Stock: 15},
			},
		},
	}

	for _, p := range products {
		if err := upsertProduct(ctx, pool, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Name, err)
		}
	}
	return nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed) error {
	// Products are keyed by name for seeding only; real writes go through
	// catalog tooling, not this package.
	var productID string
	err := pool.QueryRow(ctx, `SELECT id::text FROM products WHERE name = $1 LIMIT 1`, p.Name).Scan(&productID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = pool.QueryRow(ctx, `
INSERT INTO products (name, description, base_price, currency)
VALUES ($1, NULLIF($2, ''), $3::numeric, $4)
RETURNING id::text
`, p.Name, p.Description, p.BasePrice, p.Currency).Scan(&productID)
	}
	if err != nil {
		return err
	}

	const variantQuery = `
INSERT INTO product_variants (product_id, sku, name, price_adjustment, stock_quantity)
VALUES ($1, $2, $3, $4::numeric, $5)
ON CONFLICT (sku) DO UPDATE SET
    name = EXCLUDED.name,
    price_adjustment = EXCLUDED.price_adjustment
`
	for _, v := range p.Variants {
		if _, err := pool.Exec(ctx, variantQuery, productID, v.SKU, v.Name, v.PriceAdjustment, v.Stock); err != nil {
			return fmt.Errorf("upsert variant %s: %w", v.SKU, err)
		}
	}
	return nil
}

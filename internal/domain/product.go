package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	Currency    string          `json:"currency"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	Variants    []Variant       `json:"variants,omitempty"`
}

// Variant stock is owned by the stock ledger; StockQuantity here is a
// read-time snapshot, never a reservation decision.
type Variant struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"productId"`
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	PriceAdjustment decimal.Decimal `json:"priceAdjustment"`
	StockQuantity   int             `json:"stockQuantity"`
	IsActive        bool            `json:"isActive"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Price is the sellable unit price: product base price plus the variant's
// adjustment.
func (v Variant) Price(base decimal.Decimal) decimal.Decimal {
	return base.Add(v.PriceAdjustment)
}

// FindVariant returns the variant with the given id, or nil.
func (p *Product) FindVariant(variantID string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i]
		}
	}
	return nil
}

// FirstActiveVariant returns the first active variant, or nil if none.
func (p *Product) FirstActiveVariant() *Variant {
	for i := range p.Variants {
		if p.Variants[i].IsActive {
			return &p.Variants[i]
		}
	}
	return nil
}

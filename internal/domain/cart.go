package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is owned by exactly one user id or one guest session token. Version
// is bumped on every mutation for optimistic-concurrency detection.
type Cart struct {
	ID         string     `json:"id"`
	UserID     *string    `json:"userId,omitempty"`
	GuestToken *string    `json:"-"`
	Currency   string     `json:"currency"`
	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Items      []CartItem `json:"items"`
}

type CartItem struct {
	ID        string          `json:"id"`
	CartID    string          `json:"cartId"`
	ProductID string          `json:"productId"`
	VariantID string          `json:"variantId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FindItem returns the line for (productID, variantID), or nil. At most one
// such line exists per cart.
func (c *Cart) FindItem(productID, variantID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].VariantID == variantID {
			return &c.Items[i]
		}
	}
	return nil
}

// FindItemByID returns the line with the given item id, or nil.
func (c *Cart) FindItemByID(itemID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

// QuantityOfVariant returns the quantity currently in the cart for a variant.
func (c *Cart) QuantityOfVariant(variantID string) int {
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			return c.Items[i].Quantity
		}
	}
	return 0
}

// Subtotal sums quantity times captured unit price over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

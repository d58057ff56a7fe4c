package order

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
)

// ReorderOutcome reports what a reorder managed to rebuild. A reorder that
// could add nothing is still a success with ItemsAdded == 0; Messages carries
// a human-readable reason for every skipped or truncated line.
type ReorderOutcome struct {
	Cart         *domain.Cart `json:"cart"`
	ItemsAdded   int          `json:"itemsAdded"`
	ItemsSkipped int          `json:"itemsSkipped"`
	Messages     []string     `json:"messages"`
}

// Reorder rebuilds cart lines from a past order. Each line is re-validated
// against the current catalog: missing or inactive variants fall back to the
// product's first active variant, quantities are capped at what stock minus
// the cart's existing quantity allows, and pricing is current, not
// historical.
func (s *Service) Reorder(ctx context.Context, owner domain.OwnerKey, number string) (*ReorderOutcome, error) {
	o, err := s.getOwned(ctx, owner, number)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	outcome := &ReorderOutcome{Cart: cart, Messages: []string{}}
	for _, it := range o.Items {
		product, err := s.products.GetWithVariants(ctx, it.ProductID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if err != nil || !product.IsActive {
			outcome.ItemsSkipped++
			outcome.Messages = append(outcome.Messages, fmt.Sprintf("%s is no longer available", it.ProductName))
			continue
		}

		variant := product.FindVariant(it.VariantID)
		if variant == nil || !variant.IsActive {
			variant = product.FirstActiveVariant()
		}
		if variant == nil {
			outcome.ItemsSkipped++
			outcome.Messages = append(outcome.Messages, fmt.Sprintf("%s has no available variants", product.Name))
			continue
		}

		available, err := s.stock.CurrentStock(ctx, variant.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		maxAddable := available - cart.QuantityOfVariant(variant.ID)
		if maxAddable <= 0 {
			outcome.ItemsSkipped++
			outcome.Messages = append(outcome.Messages, fmt.Sprintf("%s is already at the maximum quantity in your cart", product.Name))
			continue
		}

		qtyToAdd := min(it.Quantity, maxAddable)
		updated, err := s.carts.AddItem(ctx, owner, cartsvc.AddItemInput{
			ProductID: product.ID,
			VariantID: variant.ID,
			Quantity:  qtyToAdd,
		})
		if err != nil {
			outcome.ItemsSkipped++
			outcome.Messages = append(outcome.Messages, fmt.Sprintf("could not add %s: %v", product.Name, err))
			continue
		}
		cart = updated
		outcome.Cart = updated
		outcome.ItemsAdded++
		if qtyToAdd < it.Quantity {
			outcome.Messages = append(outcome.Messages, fmt.Sprintf("only %d of %d added for %s due to limited stock", qtyToAdd, it.Quantity, product.Name))
		}
	}

	return outcome, nil
}

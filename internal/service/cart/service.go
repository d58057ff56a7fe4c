package cart

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
)

// Line quantity bounds enforced at the command boundary.
const (
	MinLineQuantity = 1
	MaxLineQuantity = 100
)

var ErrInvalidQuantity = fmt.Errorf("quantity must be between %d and %d", MinLineQuantity, MaxLineQuantity)

type Service struct {
	repo     cartRepo
	products productRepo
	stock    stockReader
	currency string
}

type cartRepo interface {
	Create(ctx context.Context, in cartrepo.CreateCartInput) (*domain.Cart, error)
	GetByOwner(ctx context.Context, owner domain.OwnerKey) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID string, in cartrepo.AddItemInput) error
	SetItemQuantity(ctx context.Context, cartID, itemID string, quantity, expectedVersion int) error
	RemoveItem(ctx context.Context, cartID, itemID string) error
	Clear(ctx context.Context, cartID string) error
	Delete(ctx context.Context, cartID string) error
}

type productRepo interface {
	GetWithVariants(ctx context.Context, id string) (*domain.Product, error)
}

type stockReader interface {
	CurrentStock(ctx context.Context, variantID string) (int, error)
}

func New(repo cartrepo.Repository, products productRepo, stock stockReader, currency string) *Service {
	return &Service{repo: repo, products: products, stock: stock, currency: currency}
}

// GetOrCreate returns the owner's cart, creating an empty one on first use.
func (s *Service) GetOrCreate(ctx context.Context, owner domain.OwnerKey) (*domain.Cart, error) {
	cart, err := s.repo.GetByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	in := cartrepo.CreateCartInput{Currency: s.currency}
	switch {
	case owner.IsUser():
		in.UserID = &owner.UserID
	case owner.IsGuest():
		in.GuestToken = &owner.GuestToken
	default:
		return nil, domain.ErrGuestSessionRequired
	}
	return s.repo.Create(ctx, in)
}

type AddItemInput struct {
	ProductID string
	VariantID string // empty selects the first active variant
	Quantity  int
}

// AddItem resolves the variant and merges into the owner's cart. The
// repository enforces the stock cap against the sum of the existing line
// quantity and the requested quantity inside the merge transaction, so two
// concurrent adds of the last unit end with one success and one refusal.
// The unit price (base price plus variant adjustment) is captured at this
// moment; no stock is reserved.
func (s *Service) AddItem(ctx context.Context, owner domain.OwnerKey, in AddItemInput) (*domain.Cart, error) {
	if in.Quantity < MinLineQuantity || in.Quantity > MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	product, variant, err := s.resolveVariant(ctx, in.ProductID, in.VariantID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AddItem(ctx, cart.ID, cartrepo.AddItemInput{
		ProductID: product.ID,
		VariantID: variant.ID,
		Quantity:  in.Quantity,
		UnitPrice: variant.Price(product.BasePrice),
	}); err != nil {
		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			insufficient.ProductName = product.Name
			return nil, insufficient
		}
		return nil, err
	}

	return s.repo.GetByOwner(ctx, owner)
}

// setQuantityAttempts bounds the re-read loop when the cart version moves
// under a concurrent writer.
const setQuantityAttempts = 3

// UpdateItemQuantity sets a line to an absolute quantity; zero removes the
// line. The stock check is against the new absolute quantity, not the delta.
// The write carries the cart version read here; when another writer bumps
// the version first, the read and write are retried.
func (s *Service) UpdateItemQuantity(ctx context.Context, owner domain.OwnerKey, itemID string, quantity int) (*domain.Cart, error) {
	if quantity < 0 || quantity > MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}

	for attempt := 0; attempt < setQuantityAttempts; attempt++ {
		cart, err := s.repo.GetByOwner(ctx, owner)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrCartNotFound
			}
			return nil, err
		}

		item := cart.FindItemByID(itemID)
		if item == nil {
			return nil, domain.ErrItemNotFound
		}

		if quantity > 0 {
			available, err := s.stock.CurrentStock(ctx, item.VariantID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil, domain.ErrVariantUnavailable
				}
				return nil, err
			}
			if available < quantity {
				return nil, &domain.InsufficientStockError{VariantID: item.VariantID, Available: available}
			}
		}

		err = s.repo.SetItemQuantity(ctx, cart.ID, itemID, quantity, cart.Version)
		if errors.Is(err, cartrepo.ErrStaleVersion) {
			continue
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrItemNotFound
		}
		if err != nil {
			return nil, err
		}
		return s.repo.GetByOwner(ctx, owner)
	}
	return nil, cartrepo.ErrStaleVersion
}

// RemoveItem deletes a line unconditionally.
func (s *Service) RemoveItem(ctx context.Context, owner domain.OwnerKey, itemID string) (*domain.Cart, error) {
	cart, err := s.repo.GetByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCartNotFound
		}
		return nil, err
	}

	if err := s.repo.RemoveItem(ctx, cart.ID, itemID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}

	return s.repo.GetByOwner(ctx, owner)
}

// Clear removes every line from the owner's cart. A missing cart is a no-op.
func (s *Service) Clear(ctx context.Context, owner domain.OwnerKey) error {
	cart, err := s.repo.GetByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.repo.Clear(ctx, cart.ID)
}

// MergeGuestCart folds the guest cart into the user's cart at login, capping
// every resulting line at current stock, then deletes the guest cart. Stock
// is not reserved here; the cap only keeps unorderable quantities out of the
// merged cart. Merging an already-merged guest cart is a no-op success.
func (s *Service) MergeGuestCart(ctx context.Context, guestToken, userID string) (*domain.Cart, error) {
	userKey := domain.UserKey(userID)
	userCart, err := s.GetOrCreate(ctx, userKey)
	if err != nil {
		return nil, err
	}

	guestCart, err := s.repo.GetByOwner(ctx, domain.GuestKey(guestToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return userCart, nil
		}
		return nil, err
	}

	for _, guestItem := range guestCart.Items {
		stockCap, err := s.stock.CurrentStock(ctx, guestItem.VariantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				stockCap = 0
			} else {
				return nil, err
			}
		}

		if existing := userCart.FindItem(guestItem.ProductID, guestItem.VariantID); existing != nil {
			merged := min(existing.Quantity+guestItem.Quantity, stockCap)
			if merged != existing.Quantity {
				if err := s.repo.SetItemQuantity(ctx, userCart.ID, existing.ID, merged, userCart.Version); err != nil {
					return nil, err
				}
				if userCart, err = s.repo.GetByOwner(ctx, userKey); err != nil {
					return nil, err
				}
			}
			continue
		}

		if added := min(guestItem.Quantity, stockCap); added > 0 {
			err := s.repo.AddItem(ctx, userCart.ID, cartrepo.AddItemInput{
				ProductID: guestItem.ProductID,
				VariantID: guestItem.VariantID,
				Quantity:  added,
				UnitPrice: guestItem.UnitPrice,
			})
			var insufficient *domain.InsufficientStockError
			if errors.As(err, &insufficient) {
				// Stock moved since the cap was read; the line is dropped the
				// same way a fully out-of-stock guest line is.
				continue
			}
			if err != nil {
				return nil, err
			}
			if userCart, err = s.repo.GetByOwner(ctx, userKey); err != nil {
				return nil, err
			}
		}
	}

	if err := s.repo.Delete(ctx, guestCart.ID); err != nil {
		return nil, err
	}

	return s.repo.GetByOwner(ctx, userKey)
}

func (s *Service) resolveVariant(ctx context.Context, productID, variantID string) (*domain.Product, *domain.Variant, error) {
	product, err := s.products.GetWithVariants(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrProductUnavailable
		}
		return nil, nil, err
	}
	if !product.IsActive {
		return nil, nil, domain.ErrProductUnavailable
	}

	if variantID != "" {
		variant := product.FindVariant(variantID)
		if variant == nil || !variant.IsActive {
			return nil, nil, domain.ErrVariantUnavailable
		}
		return product, variant, nil
	}

	variant := product.FirstActiveVariant()
	if variant == nil {
		return nil, nil, domain.ErrNoAvailableVariant
	}
	return product, variant, nil
}

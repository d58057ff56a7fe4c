package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCartSubtotal(t *testing.T) {
	cart := &Cart{Items: []CartItem{
		{Quantity: 2, UnitPrice: decimal.RequireFromString("19.99")},
		{Quantity: 1, UnitPrice: decimal.RequireFromString("24.50")},
	}}
	if got := cart.Subtotal(); !got.Equal(decimal.RequireFromString("64.48")) {
		t.Fatalf("Subtotal = %s, want 64.48", got)
	}

	empty := &Cart{}
	if !empty.Subtotal().IsZero() {
		t.Fatalf("empty cart subtotal = %s", empty.Subtotal())
	}
	if !empty.IsEmpty() {
		t.Fatal("expected empty cart")
	}
}

func TestCartFindItem(t *testing.T) {
	cart := &Cart{Items: []CartItem{
		{ID: "i1", ProductID: "p1", VariantID: "v1", Quantity: 2},
		{ID: "i2", ProductID: "p1", VariantID: "v2", Quantity: 3},
	}}

	if item := cart.FindItem("p1", "v2"); item == nil || item.ID != "i2" {
		t.Fatalf("FindItem(p1, v2) = %+v", item)
	}
	if item := cart.FindItem("p1", "v9"); item != nil {
		t.Fatalf("expected nil, got %+v", item)
	}
	if item := cart.FindItemByID("i1"); item == nil || item.VariantID != "v1" {
		t.Fatalf("FindItemByID(i1) = %+v", item)
	}
	if qty := cart.QuantityOfVariant("v2"); qty != 3 {
		t.Fatalf("QuantityOfVariant(v2) = %d", qty)
	}
	if qty := cart.QuantityOfVariant("v9"); qty != 0 {
		t.Fatalf("QuantityOfVariant(v9) = %d", qty)
	}
}

func TestOwnerKeyOwns(t *testing.T) {
	userID := "u1"
	token := "tok-1"

	user := UserKey("u1")
	if !user.Owns(&userID, nil) {
		t.Fatal("user should own their order")
	}
	if user.Owns(nil, &token) {
		t.Fatal("user should not own a guest order")
	}

	guest := GuestKey("tok-1")
	if !guest.Owns(nil, &token) {
		t.Fatal("guest should own their order")
	}
	if guest.Owns(&userID, nil) {
		t.Fatal("guest should not own a user order")
	}

	var zero OwnerKey
	if zero.Owns(&userID, nil) || zero.Owns(nil, &token) {
		t.Fatal("zero owner owns nothing")
	}
	if !zero.IsZero() {
		t.Fatal("expected zero owner")
	}
}

func TestInsufficientStockErrorUnwraps(t *testing.T) {
	err := &InsufficientStockError{ProductName: "Classic T-Shirt", VariantID: "v1", Available: 3}
	if err.Unwrap() != ErrInsufficientStock {
		t.Fatalf("Unwrap = %v", err.Unwrap())
	}
	if err.Error() == "" {
		t.Fatal("expected a message")
	}
}

package domain

// OwnerKey identifies who a cart or order belongs to: either an
// authenticated user id or a guest session token, never both. The zero
// value is invalid.
type OwnerKey struct {
	UserID     string
	GuestToken string
}

func UserKey(userID string) OwnerKey {
	return OwnerKey{UserID: userID}
}

func GuestKey(token string) OwnerKey {
	return OwnerKey{GuestToken: token}
}

func (k OwnerKey) IsUser() bool {
	return k.UserID != ""
}

func (k OwnerKey) IsGuest() bool {
	return k.UserID == "" && k.GuestToken != ""
}

func (k OwnerKey) IsZero() bool {
	return k.UserID == "" && k.GuestToken == ""
}

// Owns reports whether an order attributed to userID (nil for guest orders
// keyed by guestToken) belongs to this key.
func (k OwnerKey) Owns(userID *string, guestToken *string) bool {
	if k.IsUser() {
		return userID != nil && *userID == k.UserID
	}
	if k.IsGuest() {
		return guestToken != nil && *guestToken == k.GuestToken
	}
	return false
}

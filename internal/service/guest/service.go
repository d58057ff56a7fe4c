package guest

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidToken = errors.New("invalid guest token")

// Service issues and validates guest session tokens. A guest token is the
// owner key for anonymous carts and orders until the guest cart is merged
// into a user cart at login.
type Service struct {
	tokens *tokenManager
	ttl    time.Duration
}

func New() *Service {
	return &Service{
		tokens: newTokenManager(),
		ttl:    30 * 24 * time.Hour,
	}
}

func (s *Service) Issue(ctx context.Context) (string, error) {
	return s.tokens.Issue(s.ttl)
}

// Validate reports whether the token identifies a live guest session.
func (s *Service) Validate(ctx context.Context, token string) error {
	if !s.tokens.Valid(token) {
		return ErrInvalidToken
	}
	return nil
}

func (s *Service) TTLSeconds() int {
	return int(s.ttl.Seconds())
}

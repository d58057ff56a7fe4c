package guest

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type tokenMeta struct {
	ExpiresAt time.Time
}

type tokenManager struct {
	mu     sync.RWMutex
	tokens map[string]tokenMeta
}

func newTokenManager() *tokenManager {
	return &tokenManager{
		tokens: make(map[string]tokenMeta),
	}
}

func (m *tokenManager) Issue(ttl time.Duration) (string, error) {
	token, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.tokens[token.String()] = tokenMeta{ExpiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return token.String(), nil
}

func (m *tokenManager) Valid(token string) bool {
	m.mu.RLock()
	meta, ok := m.tokens[token]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(meta.ExpiresAt) {
		m.mu.Lock()
		delete(m.tokens, token)
		m.mu.Unlock()
		return false
	}
	return true
}

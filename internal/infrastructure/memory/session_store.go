package memory

import (
	"context"
	"sync"

	"github.com/ryzenix/pharmacart/internal/domain/cart"
)

// SessionStore keeps session carts in memory, keyed by session id. Values are
// cloned on the way in and out so callers never share backing arrays.
type SessionStore struct {
	mu    sync.RWMutex
	carts map[string]*cart.Cart
}

func NewSessionStore() *SessionStore {
	return &SessionStore{carts: make(map[string]*cart.Cart)}
}

func (s *SessionStore) Load(ctx context.Context, sessionID string) (*cart.Cart, bool, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[sessionID]
	if !ok {
		return nil, false, nil
	}
	return c.Clone(), true, nil
}

func (s *SessionStore) Save(ctx context.Context, sessionID string, c *cart.Cart) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[sessionID] = c.Clone()
	return nil
}

// Delete drops the session's cart, e.g. when the session ends.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, sessionID)
	return nil
}

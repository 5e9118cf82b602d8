package cart

import (
	"context"
	"time"

	domain "github.com/ryzenix/pharmacart/internal/domain/cart"
)

// SessionStore is the engine's view of the external session layer: an opaque
// keyed store the cart is (de)serialized through. The engine never manages
// session persistence or expiry.
type SessionStore interface {
	// Load returns the session's cart. ok is false when the session has no
	// cart yet; that is not an error, the caller creates one lazily.
	Load(ctx context.Context, sessionID string) (c *domain.Cart, ok bool, err error)
	Save(ctx context.Context, sessionID string, c *domain.Cart) error
}

// ExternalItem is a client-side cart entry submitted for merging, e.g. from
// browser local storage.
type ExternalItem struct {
	ProductID string
	Quantity  int
	AddedAt   time.Time
}

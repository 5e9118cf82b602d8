// Package cart implements the session-scoped cart manager: staging,
// revalidation against the live catalog, and merging of client-side items.
//
// A cart is private to one session, so there is no cross-request contention
// here. The cart's stock figures are display hints only; order creation
// re-validates stock inside its own transaction.
package cart

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	domain "github.com/ryzenix/pharmacart/internal/domain/cart"
	"github.com/ryzenix/pharmacart/internal/domain/catalog"
	"github.com/ryzenix/pharmacart/internal/domain/errs"
	"github.com/ryzenix/pharmacart/internal/pkg/logging"
)

type Service struct {
	catalog  catalog.Repository
	sessions SessionStore
	now      func() time.Time
}

func NewService(catalogRepo catalog.Repository, sessions SessionStore) *Service {
	return &Service{
		catalog:  catalogRepo,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the session's cart, creating an empty one if absent, after a
// full revalidation pass: items whose product disappeared or went inactive
// are dropped, price and display fields are refreshed from the catalog, and
// quantities are clamped to current stock. The validated copy overwrites the
// session cart.
func (s *Service) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.revalidate(ctx, c); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddItem stages quantity units of a product. When the product is already in
// the cart the quantities are summed and re-checked against current stock;
// the error then reports how many units the cart already holds.
func (s *Service) AddItem(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, errs.Invalid("quantity", "quantity must be a positive integer")
	}

	p, err := s.sellableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if existing := c.Find(productID); existing != nil {
		if existing.Quantity+quantity > p.StockQuantity {
			return nil, errs.InsufficientStock(productID, p.StockQuantity, quantity, existing.Quantity)
		}
		existing.Quantity += quantity
		refreshItem(existing, p)
		existing.UpdatedAt = now
		c.Recompute()
	} else {
		if quantity > p.StockQuantity {
			return nil, errs.InsufficientStock(productID, p.StockQuantity, quantity, 0)
		}
		c.Append(p, quantity, now)
	}

	if err := s.sessions.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("cart_item_added",
		zap.String("session_id", sessionID),
		zap.String("product_id", productID),
		zap.Int("quantity", quantity),
		zap.Int("total_items", c.TotalItems),
	)
	return c, nil
}

// UpdateItem sets the staged quantity for a product. Zero removes the item.
// The stock check uses freshly fetched catalog data, not the cached snapshot.
func (s *Service) UpdateItem(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 0 {
		return nil, errs.Invalid("quantity", "quantity must be zero or a positive integer")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, sessionID, productID)
	}

	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	item := c.Find(productID)
	if item == nil {
		return nil, errs.NotFound(errs.ResourceProduct, productID)
	}

	p, err := s.sellableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > p.StockQuantity {
		return nil, errs.InsufficientStock(productID, p.StockQuantity, quantity, 0)
	}

	item.Quantity = quantity
	refreshItem(item, p)
	item.UpdatedAt = s.now()
	c.Recompute()

	if err := s.sessions.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) RemoveItem(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !c.Remove(productID) {
		return nil, errs.NotFound(errs.ResourceProduct, productID)
	}
	if err := s.sessions.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Clear(ctx context.Context, sessionID string) (*domain.Cart, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.Clear()
	if err := s.sessions.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Sync merges client-side items into the session cart. An item already
// present keeps the larger of the two quantities; unknown items are appended
// with the client-supplied timestamp. The merged cart then goes through the
// same revalidation pass as Get, which drops anything unsellable and clamps
// quantities to stock.
func (s *Service) Sync(ctx context.Context, sessionID string, external []ExternalItem) (*domain.Cart, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for _, ext := range external {
		if ext.ProductID == "" || ext.Quantity <= 0 {
			continue
		}
		if existing := c.Find(ext.ProductID); existing != nil {
			if ext.Quantity > existing.Quantity {
				existing.Quantity = ext.Quantity
				existing.UpdatedAt = s.now()
			}
			continue
		}
		p, err := s.catalog.Get(ctx, ext.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !p.Sellable() {
			continue
		}
		addedAt := ext.AddedAt
		if addedAt.IsZero() {
			addedAt = s.now()
		}
		c.Append(p, ext.Quantity, addedAt)
	}

	if err := s.revalidate(ctx, c); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// load fetches the session cart or lazily creates an empty one. A missing
// session cart is never an error; authentication is an external precondition
// and not checked here.
func (s *Service) load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	c, ok, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok || c == nil {
		return domain.New(), nil
	}
	return c, nil
}

// revalidate reconciles every staged item with the live catalog. Items whose
// product is gone, not active, or out of stock are dropped; the rest get
// fresh price/stock/display data and a quantity clamped to what is actually
// available.
func (s *Service) revalidate(ctx context.Context, c *domain.Cart) error {
	kept := c.Items[:0]
	for i := range c.Items {
		item := c.Items[i]

		p, err := s.catalog.Get(ctx, item.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if !p.Sellable() || p.StockQuantity <= 0 {
			continue
		}

		if item.Quantity > p.StockQuantity {
			item.Quantity = p.StockQuantity
		}
		refreshItem(&item, p)
		kept = append(kept, item)
	}
	c.Items = kept
	c.Recompute()
	return nil
}

func (s *Service) sellableProduct(ctx context.Context, productID string) (*catalog.Product, error) {
	p, err := s.catalog.Get(ctx, productID)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, errs.NotFound(errs.ResourceProduct, productID)
	}
	if err != nil {
		return nil, err
	}
	if !p.Sellable() {
		return nil, errs.NotFound(errs.ResourceProduct, productID)
	}
	return p, nil
}

func refreshItem(item *domain.Item, p *catalog.Product) {
	item.Price = p.Price
	item.StockQuantity = p.StockQuantity
	item.RequiresPrescription = p.RequiresPrescription
	item.Image = p.Image
	item.Manufacturer = p.Manufacturer
	item.Category = p.Category
}

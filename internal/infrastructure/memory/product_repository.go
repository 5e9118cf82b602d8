// Package memory provides mutex-guarded in-memory implementations of the
// engine's persistence ports. They mirror the transactional guarantees of the
// postgres implementations (all-or-nothing checkout, no oversell) and back
// the unit tests as well as the DB-less dev mode.
package memory

import (
	"context"
	"sync"

	"github.com/ryzenix/pharmacart/internal/domain/catalog"
)

type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*catalog.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]*catalog.Product)}
}

func (r *ProductRepository) Get(ctx context.Context, productID string) (*catalog.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (r *ProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return catalog.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[p.ID] = cloneProduct(p)
	return nil
}

func cloneProduct(p *catalog.Product) *catalog.Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ryzenix/pharmacart/internal/domain/catalog"
	"github.com/ryzenix/pharmacart/internal/domain/errs"
	domain "github.com/ryzenix/pharmacart/internal/domain/order"
)

// OrderRepository keeps orders in memory and shares the product repository's
// lock for stock mutations, so a checkout or cancellation observes and
// mutates stock atomically, exactly like the single database transaction in
// the postgres implementation.
type OrderRepository struct {
	mu       sync.RWMutex
	orders   map[string]*domain.Order
	products *ProductRepository
}

func NewOrderRepository(products *ProductRepository) *OrderRepository {
	return &OrderRepository{
		orders:   make(map[string]*domain.Order),
		products: products,
	}
}

// Create inserts the order and reserves stock for every item, in payload
// order, under one lock. Every item is checked and snapshotted before any
// stock is touched, so a failure on the Nth item leaves no order row and no
// partial decrement.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return domain.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.products.mu.Lock()
	defer r.products.mu.Unlock()

	for i := range o.Items {
		item := &o.Items[i]
		p, ok := r.products.products[item.ProductID]
		if !ok {
			return errs.NotFound(errs.ResourceProduct, item.ProductID)
		}
		if p.StockQuantity < item.Quantity {
			return errs.InsufficientStock(item.ProductID, p.StockQuantity, item.Quantity, 0)
		}
		item.ProductTitle = p.Title
		if item.ProductSKU == "" {
			item.ProductSKU = p.SKU
		}
		item.RequiresPrescription = p.RequiresPrescription
	}

	for i := range o.Items {
		p := r.products.products[o.Items[i].ProductID]
		p.StockQuantity -= o.Items[i].Quantity
		p.UpdatedAt = o.CreatedAt
	}

	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Order, int, error) {
	_ = ctx

	r.mu.RLock()
	matched := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if !matches(o, f) {
			continue
		}
		matched = append(matched, o.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (f.Page - 1) * f.Limit
	if start >= total {
		return []*domain.Order{}, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func matches(o *domain.Order, f domain.ListFilter) bool {
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
		return false
	}
	if !f.CreatedFrom.IsZero() && o.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && o.CreatedAt.After(f.CreatedTo) {
		return false
	}
	return true
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = status
	return nil
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.PaymentStatus = status
	return nil
}

// Cancel re-checks the cancellable guard against the stored order, restores
// every item's stock, and marks the order cancelled, all under one lock. A
// racing second cancel fails the guard and restores nothing.
func (r *OrderRepository) Cancel(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return domain.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.products.mu.Lock()
	defer r.products.mu.Unlock()

	stored, ok := r.orders[o.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if !stored.Status.Cancellable() {
		return domain.ErrNotCancellable
	}

	for i := range stored.Items {
		if p, ok := r.products.products[stored.Items[i].ProductID]; ok {
			p.StockQuantity += stored.Items[i].Quantity
			p.UpdatedAt = o.UpdatedAt
		}
	}

	stored.Status = domain.StatusCancelled
	stored.CancellationReason = o.CancellationReason
	stored.Notes = o.Notes
	stored.UpdatedAt = o.UpdatedAt
	return nil
}

var _ catalog.Repository = (*ProductRepository)(nil)
var _ domain.Repository = (*OrderRepository)(nil)

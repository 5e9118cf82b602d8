package order

import (
	"context"
	"time"
)

// ListFilter narrows and pages a listing. UserID empty means no ownership
// scoping (privileged caller).
type ListFilter struct {
	UserID        string
	Status        Status
	PaymentStatus PaymentStatus
	CreatedFrom   time.Time
	CreatedTo     time.Time
	Page          int
	Limit         int
}

// Repository is the persistence port for orders. Create and Cancel are the
// two atomicity boundaries of the engine: each runs as a single transaction
// covering both the order rows and the paired stock adjustments, and either
// commits everything or leaves no trace.
type Repository interface {
	// Create persists the order and its items. For every item, in payload
	// order, it re-reads the product inside the transaction, freezes the
	// title/SKU/prescription snapshot, and applies one conditional atomic
	// stock decrement (zero rows affected means insufficient stock). Any
	// failure rolls the whole order back.
	Create(ctx context.Context, o *Order) error

	FindByID(ctx context.Context, id string) (*Order, error)

	// List returns one page of orders plus the unpaged total count.
	List(ctx context.Context, f ListFilter) ([]*Order, int, error)

	UpdateStatus(ctx context.Context, id string, status Status) error
	UpdatePaymentStatus(ctx context.Context, id string, status PaymentStatus) error

	// Cancel restores stock_quantity += quantity for every item and marks the
	// order cancelled, in one transaction. The cancellable-status guard is
	// re-applied inside the transaction so a concurrent second cancel cannot
	// double-release stock.
	Cancel(ctx context.Context, o *Order) error
}

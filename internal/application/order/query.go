package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/ryzenix/pharmacart/internal/domain/order"
	"github.com/ryzenix/pharmacart/internal/domain/errs"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// ListInput carries listing filters as submitted by the caller. OwnerScope
// non-empty restricts results to that user's orders.
type ListInput struct {
	OwnerScope    string
	Status        string
	PaymentStatus string
	CreatedFrom   time.Time
	CreatedTo     time.Time
	Page          int
	Limit         int
}

// Page is one result page with the metadata callers need for pagination UI.
type Page struct {
	Orders      []*domain.Order
	Total       int
	Page        int
	Limit       int
	TotalPages  int
	HasNextPage bool
	HasPrevPage bool
}

// Get returns one order with its items. When ownerScope is non-empty the
// order must belong to that user; a foreign order is reported as not found,
// indistinguishable from a missing one.
func (s *Service) Get(ctx context.Context, orderID, ownerScope string) (_ *domain.Order, err error) {
	ctx, finish := s.instrument(ctx, useCaseGet)
	defer func() { finish(err) }()

	if orderID == "" {
		return nil, errs.MissingFields("orderId")
	}

	o, err := s.repo.FindByID(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errs.NotFound(errs.ResourceOrder, orderID)
	}
	if err != nil {
		return nil, err
	}
	if ownerScope != "" && o.UserID != ownerScope {
		return nil, errs.NotFound(errs.ResourceOrder, orderID)
	}
	return o, nil
}

// List returns a filtered, paginated listing under the same ownership
// scoping rule as Get.
func (s *Service) List(ctx context.Context, in ListInput) (_ *Page, err error) {
	ctx, finish := s.instrument(ctx, useCaseList)
	defer func() { finish(err) }()

	filter := domain.ListFilter{
		UserID:      in.OwnerScope,
		CreatedFrom: in.CreatedFrom,
		CreatedTo:   in.CreatedTo,
		Page:        in.Page,
		Limit:       in.Limit,
	}

	if in.Status != "" {
		status := domain.Status(in.Status)
		if !status.Valid() {
			return nil, errs.Invalid("status", fmt.Sprintf("invalid order status '%s'", in.Status))
		}
		filter.Status = status
	}
	if in.PaymentStatus != "" {
		ps := domain.PaymentStatus(in.PaymentStatus)
		if !ps.Valid() {
			return nil, errs.Invalid("paymentStatus", fmt.Sprintf("invalid payment status '%s'", in.PaymentStatus))
		}
		filter.PaymentStatus = ps
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit
	return &Page{
		Orders:      orders,
		Total:       total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  totalPages,
		HasNextPage: filter.Page < totalPages,
		HasPrevPage: filter.Page > 1 && total > 0,
	}, nil
}

package order

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	domain "github.com/ryzenix/pharmacart/internal/domain/order"
	"github.com/ryzenix/pharmacart/internal/domain/errs"
	"github.com/ryzenix/pharmacart/internal/pkg/logging"
)

// CancelInput carries the caller-supplied cancellation context. Privileged
// actors (pharmacist, superuser) may cancel orders belonging to other users.
type CancelInput struct {
	OrderID    string
	ActorID    string
	ReasonText string
	ReasonCode string
	Privileged bool
}

// Cancel closes an order and releases its stock reservation: inside one
// transaction every item's quantity is added back to its product and the
// order moves to cancelled. Only pending and confirmed orders qualify, which
// makes a second release structurally impossible.
func (s *Service) Cancel(ctx context.Context, in CancelInput) (_ *domain.Order, err error) {
	ctx, finish := s.instrument(ctx, useCaseCancel)
	defer func() { finish(err) }()

	if in.OrderID == "" {
		return nil, errs.MissingFields("orderId")
	}

	var reason domain.CancellationReason
	if in.ReasonCode != "" {
		reason = domain.CancellationReason(in.ReasonCode)
		if !reason.Valid() {
			return nil, errs.Invalid("reasonCode", fmt.Sprintf("invalid cancellation reason '%s'", in.ReasonCode))
		}
		if reason.RequiresNotes() && in.ReasonText == "" {
			return nil, errs.MissingFields("reason")
		}
	}

	scope := in.ActorID
	if in.Privileged {
		scope = ""
	}
	o, err := s.Get(ctx, in.OrderID, scope)
	if err != nil {
		return nil, err
	}

	if !o.Status.Cancellable() {
		return nil, errs.NotCancellable(string(o.Status))
	}

	o.MarkCancelled(reason, in.ReasonText)
	if err := s.repo.Cancel(ctx, o); err != nil {
		// A racing cancel or status change between the load and the
		// transaction surfaces here as a guard failure.
		if errors.Is(err, domain.ErrNotCancellable) {
			return nil, errs.NotCancellable(string(domain.StatusCancelled))
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errs.NotFound(errs.ResourceOrder, o.ID)
		}
		return nil, err
	}

	logging.FromContext(ctx).Info("order_cancelled",
		zap.String("order_id", o.ID),
		zap.String("actor_id", in.ActorID),
		zap.String("reason_code", string(reason)),
		zap.Bool("privileged", in.Privileged),
	)
	return o, nil
}

// UpdateStatus validates and applies a status transition. No adjacency rule
// is enforced between non-cancelled statuses; cancellation must go through
// Cancel so stock is released exactly once.
func (s *Service) UpdateStatus(ctx context.Context, orderID, newStatus string) (err error) {
	ctx, finish := s.instrument(ctx, useCaseUpdateStatus)
	defer func() { finish(err) }()

	if orderID == "" {
		return errs.MissingFields("orderId")
	}
	status := domain.Status(newStatus)
	if !status.Valid() {
		return errs.Invalid("status", fmt.Sprintf("invalid order status '%s'", newStatus))
	}
	if status == domain.StatusCancelled {
		return errs.Invalid("status", "use the cancellation endpoint to cancel an order")
	}

	if err := s.repo.UpdateStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errs.NotFound(errs.ResourceOrder, orderID)
		}
		return err
	}
	return nil
}

// UpdatePaymentStatus records a payment state change reported by the payment
// collaborator.
func (s *Service) UpdatePaymentStatus(ctx context.Context, orderID, newStatus string) (err error) {
	ctx, finish := s.instrument(ctx, useCaseUpdatePayment)
	defer func() { finish(err) }()

	if orderID == "" {
		return errs.MissingFields("orderId")
	}
	status := domain.PaymentStatus(newStatus)
	if !status.Valid() {
		return errs.Invalid("paymentStatus", fmt.Sprintf("invalid payment status '%s'", newStatus))
	}

	if err := s.repo.UpdatePaymentStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errs.NotFound(errs.ResourceOrder, orderID)
		}
		return err
	}
	return nil
}

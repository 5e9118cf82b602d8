package order

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domain "github.com/ryzenix/pharmacart/internal/domain/order"
	"github.com/ryzenix/pharmacart/internal/domain/errs"
	"github.com/ryzenix/pharmacart/internal/pkg/logging"
)

// CreateItem is one checkout line as submitted by the caller. Quantity and
// unit price are taken from the payload, not from any live cart state; the
// repository re-validates stock independently inside its transaction.
type CreateItem struct {
	ProductID  string
	Quantity   int
	UnitPrice  int64
	ProductSKU string
}

type CreateInput struct {
	Items                 []CreateItem
	TotalAmount           int64
	ShippingAddress       string
	BillingAddress        string
	Status                string
	PaymentMethod         string
	PaymentStatus         string
	ShippingMethod        string
	ShippingCost          int64
	Notes                 string
	EstimatedDeliveryDate time.Time
	PrescriptionRequired  bool
	PrescriptionID        string
}

// Create validates the checkout payload and persists the order atomically.
// The repository transaction covers the order row, every item snapshot, and
// every conditional stock decrement: a failure anywhere (validation aside)
// leaves no partial order and no partial stock mutation.
//
// Re-submitting the same payload creates a second, independent order; there
// is no idempotency key.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (_ *domain.Order, err error) {
	ctx, finish := s.instrument(ctx, useCaseCreate)
	defer func() { finish(err) }()

	o, err := s.buildOrder(userID, in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order_created",
		zap.String("order_id", o.ID),
		zap.String("user_id", userID),
		zap.Int("item_count", len(o.Items)),
		zap.Int64("total_amount", o.TotalAmount),
	)
	return o, nil
}

// buildOrder turns the raw payload into a pending aggregate, applying
// defaults and enum validation. Product snapshots stay empty here; they are
// frozen by the repository inside the creation transaction.
func (s *Service) buildOrder(userID string, in CreateInput) (*domain.Order, error) {
	if userID == "" {
		return nil, errs.MissingFields("userId")
	}
	if len(in.Items) == 0 {
		return nil, errs.MissingFields("items")
	}
	if in.TotalAmount < 0 {
		return nil, errs.Invalid("totalAmount", "total amount must be zero or greater")
	}
	if in.ShippingAddress == "" {
		return nil, errs.MissingFields("shippingAddress")
	}
	if in.ShippingCost < 0 {
		return nil, errs.Invalid("shippingCost", "shipping cost must be zero or greater")
	}

	status := domain.Status(defaultString(in.Status, string(domain.StatusPending)))
	if !status.Valid() {
		return nil, errs.Invalid("status", fmt.Sprintf("invalid order status '%s'", in.Status))
	}
	paymentMethod := domain.PaymentMethod(defaultString(in.PaymentMethod, string(domain.PaymentCashOnDelivery)))
	if !paymentMethod.Valid() {
		return nil, errs.Invalid("paymentMethod", fmt.Sprintf("invalid payment method '%s'", in.PaymentMethod))
	}
	paymentStatus := domain.PaymentStatus(defaultString(in.PaymentStatus, string(domain.PaymentPending)))
	if !paymentStatus.Valid() {
		return nil, errs.Invalid("paymentStatus", fmt.Sprintf("invalid payment status '%s'", in.PaymentStatus))
	}
	shippingMethod := domain.ShippingMethod(defaultString(in.ShippingMethod, string(domain.ShippingStandard)))
	if !shippingMethod.Valid() {
		return nil, errs.Invalid("shippingMethod", fmt.Sprintf("invalid shipping method '%s'", in.ShippingMethod))
	}

	var missing []string
	for i, item := range in.Items {
		if item.ProductID == "" {
			missing = append(missing, fmt.Sprintf("items[%d].productId", i))
		}
		if item.Quantity <= 0 {
			missing = append(missing, fmt.Sprintf("items[%d].quantity", i))
		}
		if item.UnitPrice <= 0 {
			missing = append(missing, fmt.Sprintf("items[%d].unitPrice", i))
		}
	}
	if len(missing) > 0 {
		return nil, errs.MissingFields(missing...)
	}

	now := s.now()
	o := &domain.Order{
		ID:                    s.idGen.NewID(),
		UserID:                userID,
		Status:                status,
		TotalAmount:           in.TotalAmount,
		PaymentMethod:         paymentMethod,
		PaymentStatus:         paymentStatus,
		ShippingMethod:        shippingMethod,
		ShippingCost:          in.ShippingCost,
		ShippingAddress:       in.ShippingAddress,
		BillingAddress:        in.BillingAddress,
		Notes:                 in.Notes,
		PrescriptionRequired:  in.PrescriptionRequired,
		PrescriptionID:        in.PrescriptionID,
		EstimatedDeliveryDate: in.EstimatedDeliveryDate,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	o.Items = make([]domain.Item, 0, len(in.Items))
	for _, item := range in.Items {
		o.Items = append(o.Items, domain.Item{
			ID:         s.idGen.NewID(),
			OrderID:    o.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.UnitPrice * int64(item.Quantity),
			ProductSKU: item.ProductSKU,
		})
	}
	return o, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

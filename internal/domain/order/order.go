// Package order holds the persisted order aggregate and its lifecycle rules.
// An order is immutable once created except for status, payment status,
// cancellation fields, and timestamps.
package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("order: not found")
	ErrNotCancellable = errors.New("order: status is not cancellable")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Cancellable reports whether an order in this status may still be cancelled.
// Once past confirmed, the compensating stock release is no longer allowed.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentCard           PaymentMethod = "card"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
	PaymentEWallet        PaymentMethod = "e_wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentCard, PaymentBankTransfer, PaymentEWallet:
		return true
	}
	return false
}

type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
	ShippingPickup   ShippingMethod = "pickup"
)

func (m ShippingMethod) Valid() bool {
	switch m {
	case ShippingStandard, ShippingExpress, ShippingPickup:
		return true
	}
	return false
}

// Item is the fully immutable line-item snapshot taken at creation time.
// Title, SKU and the prescription flag are frozen copies so later catalog
// edits never retroactively alter historical orders.
type Item struct {
	ID                   string
	OrderID              string
	ProductID            string
	Quantity             int
	UnitPrice            int64
	TotalPrice           int64
	ProductTitle         string
	ProductSKU           string
	RequiresPrescription bool
}

type Order struct {
	ID                    string
	UserID                string
	Status                Status
	Items                 []Item
	TotalAmount           int64
	PaymentMethod         PaymentMethod
	PaymentStatus         PaymentStatus
	ShippingMethod        ShippingMethod
	ShippingCost          int64
	ShippingAddress       string
	BillingAddress        string
	Notes                 string
	PrescriptionRequired  bool
	PrescriptionID        string
	CancellationReason    CancellationReason
	EstimatedDeliveryDate time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// MarkCancelled applies the terminal cancellation transition. Callers must
// have checked Cancellable first; repositories re-check it inside their
// transaction.
func (o *Order) MarkCancelled(reason CancellationReason, notes string) {
	o.Status = StatusCancelled
	o.CancellationReason = reason
	if notes != "" {
		o.Notes = notes
	}
	o.touch()
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy of the order including its items.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = make([]Item, len(o.Items))
	copy(clone.Items, o.Items)
	return &clone
}

// Package errs defines the typed errors the checkout engine surfaces to its
// callers. The transport layer maps them to status codes; the engine itself
// never builds HTTP responses.
package errs

import (
	"fmt"
	"strings"
)

// Resource tags a NotFoundError with the kind of entity that was missing, so
// callers never have to parse it out of a message string.
type Resource string

const (
	ResourceProduct      Resource = "product"
	ResourceOrder        Resource = "order"
	ResourcePrescription Resource = "prescription"
)

// ValidationError reports missing or malformed request fields. Recoverable by
// fixing the payload.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// MissingFields builds a ValidationError for absent required fields.
func MissingFields(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Message: "missing required fields"}
}

// Invalid builds a ValidationError for a malformed or out-of-range field.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: []string{field}, Message: msg}
}

// NotFoundError reports an entity that does not exist, or exists outside the
// caller's ownership scope (the two are deliberately indistinguishable).
type NotFoundError struct {
	Resource Resource
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func NotFound(resource Resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// BusinessLogicError reports a request that is well-formed but not allowed by
// the current state of the system. Details carries structured context
// (available vs requested stock, current order status) so the caller can
// decide a remedy without re-deriving it from the message.
type BusinessLogicError struct {
	Code    string
	Message string
	Details map[string]any
}

func (e *BusinessLogicError) Error() string { return e.Message }

const (
	CodeInsufficientStock = "insufficient_stock"
	CodeNotCancellable    = "order_not_cancellable"
	CodeProductInactive   = "product_inactive"
)

// InsufficientStock reports that a product cannot cover the requested
// quantity. inCart is the quantity already staged for the same product, zero
// when not applicable.
func InsufficientStock(productID string, available, requested, inCart int) *BusinessLogicError {
	msg := fmt.Sprintf("insufficient stock for product %s: %d available, %d requested", productID, available, requested)
	if inCart > 0 {
		msg = fmt.Sprintf("insufficient stock for product %s: %d available, cart already has %d and %d more requested",
			productID, available, inCart, requested)
	}
	details := map[string]any{
		"product_id": productID,
		"available":  available,
		"requested":  requested,
	}
	if inCart > 0 {
		details["in_cart"] = inCart
	}
	return &BusinessLogicError{Code: CodeInsufficientStock, Message: msg, Details: details}
}

// NotCancellable reports a cancellation attempt against an order whose status
// forbids it.
func NotCancellable(status string) *BusinessLogicError {
	return &BusinessLogicError{
		Code:    CodeNotCancellable,
		Message: fmt.Sprintf("cannot cancel order with status '%s'", status),
		Details: map[string]any{"current_status": status, "cancellable_statuses": []string{"pending", "confirmed"}},
	}
}

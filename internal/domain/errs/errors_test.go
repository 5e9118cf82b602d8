package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorMessage(t *testing.T) {
	err := MissingFields("userId", "items")
	assert.Equal(t, "missing required fields: userId, items", err.Error())

	err = Invalid("quantity", "quantity must be a positive integer")
	assert.Equal(t, "quantity must be a positive integer: quantity", err.Error())
}

func TestNotFoundErrorMessage(t *testing.T) {
	assert.Equal(t, `order "o-1" not found`, NotFound(ResourceOrder, "o-1").Error())
	assert.Equal(t, "product not found", NotFound(ResourceProduct, "").Error())
}

func TestInsufficientStock(t *testing.T) {
	err := InsufficientStock("p1", 3, 5, 0)
	assert.Equal(t, "insufficient stock for product p1: 3 available, 5 requested", err.Error())
	assert.Equal(t, CodeInsufficientStock, err.Code)
	assert.NotContains(t, err.Details, "in_cart")

	err = InsufficientStock("p1", 3, 2, 2)
	assert.Equal(t, "insufficient stock for product p1: 3 available, cart already has 2 and 2 more requested", err.Error())
	assert.Equal(t, 2, err.Details["in_cart"])
}

func TestNotCancellable(t *testing.T) {
	err := NotCancellable("shipped")
	assert.Equal(t, "cannot cancel order with status 'shipped'", err.Error())
	assert.Equal(t, "shipped", err.Details["current_status"])
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("checkout failed: %w", InsufficientStock("p1", 1, 2, 0))

	var blErr *BusinessLogicError
	require.True(t, errors.As(wrapped, &blErr))
	assert.Equal(t, CodeInsufficientStock, blErr.Code)
}

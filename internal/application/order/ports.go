package order

// IDGenerator supplies identifiers for new orders and order items.
type IDGenerator interface {
	NewID() string
}

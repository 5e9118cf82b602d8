package catalog

import "context"

// Repository is the engine's read port onto the product catalog. Stock
// mutations are not exposed here: they happen only inside the order
// repository's transaction, paired with the order rows they belong to.
type Repository interface {
	Get(ctx context.Context, productID string) (*Product, error)
	Save(ctx context.Context, product *Product) error
}

// Package catalog models the slice of the product catalog this engine reads.
// The catalog is owned elsewhere; the only mutation the checkout engine ever
// applies to it is a stock quantity adjustment.
package catalog

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("catalog: product not found")

type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusOutOfStock Status = "out_of_stock"
)

// Product is a read model of a catalog entry. Prices are integer minor units.
type Product struct {
	ID                   string
	Title                string
	SKU                  string
	Price                int64
	StockQuantity        int
	Status               Status
	RequiresPrescription bool
	Image                string
	Manufacturer         string
	Category             string
	UpdatedAt            time.Time
}

// Sellable reports whether the product may be added to a cart or ordered.
func (p *Product) Sellable() bool {
	return p != nil && p.Status == StatusActive
}

// Package cart models the session-scoped staging cart. A cart is a plain
// typed value: it is serialized only at the session-store boundary and is
// never persisted on its own.
package cart

import (
	"time"

	"github.com/ryzenix/pharmacart/internal/domain/catalog"
)

// Item is a display snapshot of a product staged for purchase. Price and
// stock are refreshed from the live catalog on every read, so they are hints,
// not reservations.
type Item struct {
	ProductID            string    `json:"product_id"`
	Quantity             int       `json:"quantity"`
	Price                int64     `json:"price"`
	StockQuantity        int       `json:"stock_quantity"`
	RequiresPrescription bool      `json:"requires_prescription"`
	Image                string    `json:"image,omitempty"`
	Manufacturer         string    `json:"manufacturer,omitempty"`
	Category             string    `json:"category,omitempty"`
	AddedAt              time.Time `json:"added_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type Cart struct {
	Items       []Item `json:"items"`
	TotalAmount int64  `json:"total_amount"`
	TotalItems  int    `json:"total_items"`
}

// New returns an empty cart, the value a session gets on first use.
func New() *Cart {
	return &Cart{Items: []Item{}}
}

// Find returns a pointer into Items for the given product, or nil.
func (c *Cart) Find(productID string) *Item {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// Append stages a fresh snapshot of the product. The caller has already
// checked stock.
func (c *Cart) Append(p *catalog.Product, quantity int, now time.Time) {
	c.Items = append(c.Items, Item{
		ProductID:            p.ID,
		Quantity:             quantity,
		Price:                p.Price,
		StockQuantity:        p.StockQuantity,
		RequiresPrescription: p.RequiresPrescription,
		Image:                p.Image,
		Manufacturer:         p.Manufacturer,
		Category:             p.Category,
		AddedAt:              now,
		UpdatedAt:            now,
	})
	c.Recompute()
}

// Remove drops the item for the given product. Returns false when the
// product was not in the cart.
func (c *Cart) Remove(productID string) bool {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.Recompute()
			return true
		}
	}
	return false
}

// Clear empties the cart in place.
func (c *Cart) Clear() {
	c.Items = c.Items[:0]
	c.Recompute()
}

// Recompute restores the totals invariant:
// TotalAmount = Σ price*qty, TotalItems = Σ qty.
// Every mutation must end with a call to this.
func (c *Cart) Recompute() {
	var amount int64
	var count int
	for i := range c.Items {
		amount += c.Items[i].Price * int64(c.Items[i].Quantity)
		count += c.Items[i].Quantity
	}
	c.TotalAmount = amount
	c.TotalItems = count
}

// Clone returns a deep copy, so session stores can hand out values without
// sharing backing arrays.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := &Cart{
		Items:       make([]Item, len(c.Items)),
		TotalAmount: c.TotalAmount,
		TotalItems:  c.TotalItems,
	}
	copy(clone.Items, c.Items)
	return clone
}

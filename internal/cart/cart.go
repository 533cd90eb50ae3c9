// Package cart holds the shopping cart for partner products. The running
// total is always recomputed in integer cents from every item; it is never
// adjusted incrementally.
package cart

import "time"

// CartItem mirrors a partner-product record plus an optional note. ID is a
// synthetic identifier assigned at insertion time so removal never depends
// on positional indices.
type CartItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Partner   string  `json:"partner"`
	Price     float64 `json:"price"`
	Note      string  `json:"note,omitempty"`
}

// Cart is the persisted cart state.
type Cart struct {
	OwnerID    string     `json:"owner_id"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Items      []CartItem `json:"items"`
	TotalCents int64      `json:"total_cents"`
}

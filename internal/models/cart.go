package models

// Cart maps product IDs to quantities. It lives in one session's state
// and is never shared across sessions. Zero-quantity lines are never
// stored: setting a quantity to 0 removes the line.
type Cart map[string]int

// NewCart returns an empty cart.
func NewCart() Cart { return make(Cart) }

// Quantity returns the quantity for a product, 0 if the line is absent.
func (c Cart) Quantity(productID string) int { return c[productID] }

// Set stores a quantity, removing the line when qty <= 0.
func (c Cart) Set(productID string, qty int) {
	if qty <= 0 {
		delete(c, productID)
		return
	}
	c[productID] = qty
}

// Remove deletes a line and reports whether it existed.
func (c Cart) Remove(productID string) bool {
	_, ok := c[productID]
	delete(c, productID)
	return ok
}

// Clear empties the cart.
func (c Cart) Clear() {
	for id := range c {
		delete(c, id)
	}
}

// Count returns the total number of items across all lines.
func (c Cart) Count() int {
	n := 0
	for _, qty := range c {
		if qty > 0 {
			n += qty
		}
	}
	return n
}

// Clone returns an independent copy of the cart.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for id, qty := range c {
		out[id] = qty
	}
	return out
}

// CartLine is one priced row of a cart summary.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
	Total    float64 `json:"total"`
}

// CartTotals is the result of pricing a cart against a catalog snapshot.
// Lines are ordered by product name, since the cart map itself has no
// stable order.
type CartTotals struct {
	Lines    []CartLine `json:"lines"`
	Subtotal float64    `json:"subtotal"`
}

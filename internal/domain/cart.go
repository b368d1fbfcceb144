package domain

// CartLine is one item reference held in a cart
type CartLine struct {
	ID     int64 `json:"id,omitempty"`
	CartID int64 `json:"cart_id"`
	ItemID int64 `json:"item_id"`
	Item   Item  `json:"item"`
}

// Cart is the server-side cart of the current user
type Cart struct {
	ID    int64      `json:"id"`
	Items []CartLine `json:"items"`
}

// IsEmpty reports whether the cart is absent or holds no lines.
// Safe to call on a nil cart.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

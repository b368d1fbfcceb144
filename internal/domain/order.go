package domain

// OrderLine is one item copied from a cart into an order
type OrderLine struct {
	ID      int64 `json:"id,omitempty"`
	OrderID int64 `json:"order_id"`
	ItemID  int64 `json:"item_id"`
	Item    Item  `json:"item"`
}

// Order is a placed order. The client only ever looks at its ID.
type Order struct {
	ID    int64       `json:"id"`
	Items []OrderLine `json:"items,omitempty"`
}

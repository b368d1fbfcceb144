package testutil

import (
	"fmt"
	"sync/atomic"

	"shopping-portal/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

func nextID() int64 {
	return idCounter.Add(1)
}

// ItemOptions allows customizing item fixture creation
type ItemOptions struct {
	ID          int64
	Name        string
	Description string
	Price       float64
}

// NewTestItem creates a test item with sensible defaults
// Pass options to override specific fields
func NewTestItem(opts ...func(*ItemOptions)) domain.Item {
	id := nextID()
	o := &ItemOptions{
		ID:          id,
		Name:        fmt.Sprintf("Item %d", id),
		Description: "A thing you can buy",
		Price:       9.99,
	}

	for _, opt := range opts {
		opt(o)
	}

	return domain.Item{
		ID:          o.ID,
		Name:        o.Name,
		Description: o.Description,
		Price:       o.Price,
	}
}

// WithItemID sets the item ID
func WithItemID(id int64) func(*ItemOptions) {
	return func(o *ItemOptions) {
		o.ID = id
	}
}

// WithItemName sets the item name
func WithItemName(name string) func(*ItemOptions) {
	return func(o *ItemOptions) {
		o.Name = name
	}
}

// WithPrice sets the item price
func WithPrice(price float64) func(*ItemOptions) {
	return func(o *ItemOptions) {
		o.Price = price
	}
}

// NewTestCart creates a cart holding one line per item
func NewTestCart(id int64, items ...domain.Item) *domain.Cart {
	cart := &domain.Cart{ID: id, Items: []domain.CartLine{}}
	for _, it := range items {
		cart.Items = append(cart.Items, domain.CartLine{
			ID:     nextID(),
			CartID: id,
			ItemID: it.ID,
			Item:   it,
		})
	}
	return cart
}

// NewTestOrders creates one empty order per id
func NewTestOrders(ids ...int64) []domain.Order {
	orders := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		orders = append(orders, domain.Order{ID: id})
	}
	return orders
}

// SessionOptions allows customizing session fixture creation
type SessionOptions struct {
	Token    string
	UserID   int64
	Username string
}

// NewTestSession creates a test session with sensible defaults
func NewTestSession(opts ...func(*SessionOptions)) *domain.Session {
	id := nextID()
	o := &SessionOptions{
		Token:    fmt.Sprintf("token-%d", id),
		UserID:   id,
		Username: fmt.Sprintf("testuser%d", id),
	}

	for _, opt := range opts {
		opt(o)
	}

	return &domain.Session{
		Token: o.Token,
		User:  &domain.User{ID: o.UserID, Username: o.Username},
	}
}

// WithToken sets the session token
func WithToken(token string) func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.Token = token
	}
}

// WithSessionUsername sets the username of the session's user
func WithSessionUsername(username string) func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.Username = username
	}
}

// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the shopping-portal application.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"shopping-portal/internal/domain"
)

// Common test errors
var (
	ErrMockNotImplemented = errors.New("mock function not implemented")
	// ErrMockRejected matches domain.ErrRejected, like a non-2xx response
	ErrMockRejected = fmt.Errorf("mock: %w", domain.ErrRejected)
	// ErrMockTransport matches domain.ErrTransport, like a dropped connection
	ErrMockTransport = fmt.Errorf("mock: %w", domain.ErrTransport)
	// ErrMockCartNotFound matches domain.ErrCartNotFound and domain.ErrRejected
	ErrMockCartNotFound = fmt.Errorf("mock: %w: %w", domain.ErrRejected, domain.ErrCartNotFound)
)

// Operation names recorded by MockShopAPI
const (
	OpLogin       = "login"
	OpListItems   = "list_items"
	OpAddToCart   = "add_to_cart"
	OpGetCart     = "get_cart"
	OpCreateOrder = "create_order"
	OpListOrders  = "list_orders"
)

// APICall records one call made against MockShopAPI
type APICall struct {
	Op    string
	Token string
	// Arg is the item id for add_to_cart and the cart id for create_order
	Arg int64
}

// MockShopAPI implements state.API for testing
type MockShopAPI struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	LoginFunc       func(ctx context.Context, username, password string) (*domain.Session, error)
	ListItemsFunc   func(ctx context.Context) ([]domain.Item, error)
	AddToCartFunc   func(ctx context.Context, token string, itemID int64) error
	GetCartFunc     func(ctx context.Context, token string) (*domain.Cart, error)
	CreateOrderFunc func(ctx context.Context, token string, cartID int64) error
	ListOrdersFunc  func(ctx context.Context, token string) ([]domain.Order, error)

	// Call tracking
	calls []APICall
}

// NewMockShopAPI creates a MockShopAPI whose defaults all succeed
func NewMockShopAPI() *MockShopAPI {
	return &MockShopAPI{}
}

func (m *MockShopAPI) record(call APICall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *MockShopAPI) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	m.record(APICall{Op: OpLogin})
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password)
	}
	return NewTestSession(WithSessionUsername(username)), nil
}

func (m *MockShopAPI) ListItems(ctx context.Context) ([]domain.Item, error) {
	m.record(APICall{Op: OpListItems})
	if m.ListItemsFunc != nil {
		return m.ListItemsFunc(ctx)
	}
	return nil, nil
}

func (m *MockShopAPI) AddToCart(ctx context.Context, token string, itemID int64) error {
	m.record(APICall{Op: OpAddToCart, Token: token, Arg: itemID})
	if m.AddToCartFunc != nil {
		return m.AddToCartFunc(ctx, token, itemID)
	}
	return nil
}

func (m *MockShopAPI) GetCart(ctx context.Context, token string) (*domain.Cart, error) {
	m.record(APICall{Op: OpGetCart, Token: token})
	if m.GetCartFunc != nil {
		return m.GetCartFunc(ctx, token)
	}
	return nil, ErrMockCartNotFound
}

func (m *MockShopAPI) CreateOrder(ctx context.Context, token string, cartID int64) error {
	m.record(APICall{Op: OpCreateOrder, Token: token, Arg: cartID})
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, token, cartID)
	}
	return nil
}

func (m *MockShopAPI) ListOrders(ctx context.Context, token string) ([]domain.Order, error) {
	m.record(APICall{Op: OpListOrders, Token: token})
	if m.ListOrdersFunc != nil {
		return m.ListOrdersFunc(ctx, token)
	}
	return nil, nil
}

// Calls returns all recorded calls, optionally only those for op
func (m *MockShopAPI) Calls(op ...string) []APICall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]APICall, 0, len(m.calls))
	for _, c := range m.calls {
		if len(op) == 0 || c.Op == op[0] {
			out = append(out, c)
		}
	}
	return out
}

// CallCount returns how many times op was called
func (m *MockShopAPI) CallCount(op string) int {
	return len(m.Calls(op))
}

// Reset clears all recorded calls
func (m *MockShopAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// NoticeRecorder implements notify.Notifier by remembering every notice
type NoticeRecorder struct {
	mu      sync.RWMutex
	notices []domain.Notice
}

// NewNoticeRecorder creates an empty NoticeRecorder
func NewNoticeRecorder() *NoticeRecorder {
	return &NoticeRecorder{}
}

func (r *NoticeRecorder) Notify(_ context.Context, n domain.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns all recorded notices
func (r *NoticeRecorder) Notices() []domain.Notice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Notice{}, r.notices...)
}

// Messages returns the text of all recorded notices
func (r *NoticeRecorder) Messages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Message
	}
	return out
}

// Last returns the most recent notice, or the zero Notice
func (r *NoticeRecorder) Last() domain.Notice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.notices) == 0 {
		return domain.Notice{}
	}
	return r.notices[len(r.notices)-1]
}

// Reset clears all recorded notices
func (r *NoticeRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}

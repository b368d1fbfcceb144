package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"shopping-portal/internal/domain"
	"shopping-portal/internal/observability"

	"github.com/google/uuid"
)

const (
	opLogin       = "login"
	opListItems   = "list_items"
	opAddToCart   = "add_to_cart"
	opGetCart     = "get_cart"
	opCreateOrder = "create_order"
	opListOrders  = "list_orders"

	// Upper bound on how much of an error body is read for its message
	maxErrorBody = 4 << 10
)

// Client talks to the shop REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithTimeout sets the overall per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithTransport replaces the HTTP transport, e.g. with a ValidatingTransport
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// NewClient creates a shop API client for baseURL (no trailing slash)
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type addToCartRequest struct {
	ItemID int64 `json:"item_id"`
}

type createOrderRequest struct {
	CartID int64 `json:"cart_id"`
}

// Login exchanges credentials for a bearer token and the user record
func (c *Client) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	var session domain.Session
	if err := c.do(ctx, opLogin, http.MethodPost, "/users/login", "", loginRequest{username, password}, &session); err != nil {
		return nil, err
	}
	if session.Token == "" {
		return nil, fmt.Errorf("%s: %w: response carried no token", opLogin, domain.ErrTransport)
	}
	return &session, nil
}

// ListItems fetches the whole catalog
func (c *Client) ListItems(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	if err := c.do(ctx, opListItems, http.MethodGet, "/items", "", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AddToCart puts one item reference into the user's cart
func (c *Client) AddToCart(ctx context.Context, token string, itemID int64) error {
	return c.do(ctx, opAddToCart, http.MethodPost, "/carts", token, addToCartRequest{ItemID: itemID}, nil)
}

// GetCart fetches the user's cart. A user without a cart gets an error
// matching domain.ErrCartNotFound.
func (c *Client) GetCart(ctx context.Context, token string) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, opGetCart, http.MethodGet, "/carts", token, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// CreateOrder turns the cart into an order
func (c *Client) CreateOrder(ctx context.Context, token string, cartID int64) error {
	return c.do(ctx, opCreateOrder, http.MethodPost, "/orders", token, createOrderRequest{CartID: cartID}, nil)
}

// ListOrders fetches the user's order history
func (c *Client) ListOrders(ctx context.Context, token string) ([]domain.Order, error) {
	var orders []domain.Order
	if err := c.do(ctx, opListOrders, http.MethodGet, "/orders", token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// do performs one round trip. Non-2xx statuses become *StatusError,
// everything else that goes wrong wraps domain.ErrTransport.
func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: %w: failed to encode request: %w", op, domain.ErrTransport, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w: failed to create request: %w", op, domain.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	reqID, ok := observability.RequestID(ctx)
	if !ok {
		reqID = uuid.New().String()
	}
	req.Header.Set("X-Request-ID", reqID)

	log := observability.FromContext(ctx)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		record(op, "error", start)
		log.Debug("shop api call failed",
			slog.String("op", op),
			slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	record(op, strconv.Itoa(resp.StatusCode), start)
	log.Debug("shop api call",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: failed to decode response: %w", op, domain.ErrTransport, err)
	}
	return nil
}

func record(op, status string, start time.Time) {
	observability.APIRequestDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	observability.APIRequestsTotal.WithLabelValues(op, status).Inc()
}

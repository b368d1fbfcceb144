package state

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"shopping-portal/internal/domain"
	"shopping-portal/internal/notify"
	"shopping-portal/internal/observability"
)

// API is the remote shop as the controller needs it
type API interface {
	Login(ctx context.Context, username, password string) (*domain.Session, error)
	ListItems(ctx context.Context) ([]domain.Item, error)
	AddToCart(ctx context.Context, token string, itemID int64) error
	GetCart(ctx context.Context, token string) (*domain.Cart, error)
	CreateOrder(ctx context.Context, token string, cartID int64) error
	ListOrders(ctx context.Context, token string) ([]domain.Order, error)
}

// CheckoutOutcome describes a finished checkout
type CheckoutOutcome struct {
	Result CheckoutResult
	// CartID is the cart that was ordered, 0 if none was
	CartID int64
	Err    error
}

// CheckoutObserver is told about every finished checkout
type CheckoutObserver interface {
	CheckoutFinished(ctx context.Context, outcome CheckoutOutcome)
}

// Controller owns the client state. Operations may run concurrently;
// network calls are made without holding the state lock, so whichever
// response arrives last wins.
type Controller struct {
	api      API
	tokens   domain.TokenStore
	notifier notify.Notifier
	observer CheckoutObserver

	mu    sync.Mutex
	state State
}

// ControllerOption customizes a Controller
type ControllerOption func(*Controller)

// WithCheckoutObserver registers o for checkout outcomes
func WithCheckoutObserver(o CheckoutObserver) ControllerOption {
	return func(c *Controller) {
		c.observer = o
	}
}

// NewController creates a controller with an empty state. Call Start to
// pick up a stored token.
func NewController(api API, tokens domain.TokenStore, notifier notify.Notifier, opts ...ControllerOption) *Controller {
	if notifier == nil {
		notifier = notify.Discard
	}
	c := &Controller{
		api:      api,
		tokens:   tokens,
		notifier: notifier,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// View returns the current UI mode
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.View()
}

// Authenticated reports whether a bearer token is held
func (c *Controller) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Authenticated()
}

// Start restores the durable token. A restored token triggers one
// catalog fetch.
func (c *Controller) Start(ctx context.Context) error {
	token, err := c.tokens.Load()
	if err != nil {
		observability.FromContext(ctx).Error("failed to load stored token",
			slog.String("error", err.Error()))
		return err
	}
	if token != "" {
		c.dispatch(ctx, TokenRestored{Token: token})
	}
	return nil
}

// SetCredentials updates the login form
func (c *Controller) SetCredentials(username, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state, _ = Reduce(c.state, CredentialsChanged{Username: username, Password: password})
}

// Login submits the login form
func (c *Controller) Login(ctx context.Context) error {
	ctx = observability.WithOperation(ctx, "login")
	s := c.dispatch(ctx, LoginStarted{})

	session, err := c.api.Login(ctx, s.Username, s.Password)
	if err != nil {
		observability.FromContext(ctx).Warn("login failed",
			slog.String("username", s.Username),
			slog.String("error", err.Error()))
		c.dispatch(ctx, LoginFailed{Err: err})
		return err
	}

	observability.FromContext(ctx).Info("login succeeded", slog.String("username", s.Username))
	c.dispatch(ctx, LoginSucceeded{Session: *session})
	return nil
}

// FetchItems replaces the catalog. Failures are logged and otherwise
// swallowed; the previous catalog stays.
func (c *Controller) FetchItems(ctx context.Context) error {
	ctx = observability.WithOperation(ctx, "fetch_items")

	items, err := c.api.ListItems(ctx)
	if err != nil {
		observability.FromContext(ctx).Error("failed to fetch items",
			slog.String("error", err.Error()))
		return err
	}

	c.dispatch(ctx, ItemsLoaded{Items: items})
	return nil
}

// AddToCart adds one item to the server-side cart. Local cart state is
// left alone either way.
func (c *Controller) AddToCart(ctx context.Context, itemID int64) error {
	ctx = observability.WithOperation(ctx, "add_to_cart")
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	if err := c.api.AddToCart(ctx, token, itemID); err != nil {
		observability.FromContext(ctx).Warn("add to cart failed",
			slog.Int64("item_id", itemID),
			slog.String("error", err.Error()))
		c.dispatch(ctx, ItemAddFailed{ItemID: itemID, Err: err})
		return err
	}

	c.dispatch(ctx, ItemAdded{ItemID: itemID})
	return nil
}

// ViewCart fetches the cart and shows its contents
func (c *Controller) ViewCart(ctx context.Context) error {
	ctx = observability.WithOperation(ctx, "view_cart")
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	cart, err := c.api.GetCart(ctx, token)
	if err != nil {
		observability.FromContext(ctx).Warn("cart fetch failed", slog.String("error", err.Error()))
		c.dispatch(ctx, CartLoadFailed{Err: err})
		return err
	}

	c.dispatch(ctx, CartLoaded{Cart: cart})
	return nil
}

// ViewOrderHistory fetches the order list and shows the identifiers
func (c *Controller) ViewOrderHistory(ctx context.Context) error {
	ctx = observability.WithOperation(ctx, "view_orders")
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	orders, err := c.api.ListOrders(ctx, token)
	if err != nil {
		observability.FromContext(ctx).Warn("order fetch failed", slog.String("error", err.Error()))
		c.dispatch(ctx, OrdersLoadFailed{Err: err})
		return err
	}

	c.dispatch(ctx, OrdersLoaded{Orders: orders})
	return nil
}

// Checkout orders the current cart. It issues at most one order creation
// call and never issues one for an empty or missing cart.
func (c *Controller) Checkout(ctx context.Context) CheckoutResult {
	ctx = observability.WithOperation(ctx, "checkout")
	token, err := c.token(ctx)
	if err != nil {
		return CheckoutFailed
	}
	log := observability.FromContext(ctx)

	plan := planCheckout(c.Snapshot().Cart)
	for plan.step != stepDone {
		switch plan.step {
		case stepRefetch:
			fresh, err := c.api.GetCart(ctx, token)
			if err == nil {
				c.dispatch(ctx, CartRefreshed{Cart: fresh})
			}
			plan = afterRefetch(fresh, err)
			if plan.result == CheckoutEmptyCart {
				if errors.Is(err, domain.ErrCartNotFound) {
					log.Info("checkout aborted: no cart on server")
				} else {
					log.Info("checkout aborted: cart is empty")
				}
			}

		case stepPost:
			cartID := plan.cartID
			plan = afterPost(c.api.CreateOrder(ctx, token, cartID))
			plan.cartID = cartID
		}
	}

	if plan.err != nil && plan.result == CheckoutFailed {
		log.Warn("checkout failed",
			slog.Int64("cart_id", plan.cartID),
			slog.String("error", plan.err.Error()))
	} else {
		log.Info("checkout finished",
			slog.String("result", plan.result.String()),
			slog.Int64("cart_id", plan.cartID))
	}

	observability.CheckoutsTotal.WithLabelValues(plan.result.String()).Inc()
	c.dispatch(ctx, CheckoutFinished{Result: plan.result, Err: plan.err})
	if c.observer != nil {
		c.observer.CheckoutFinished(ctx, CheckoutOutcome{Result: plan.result, CartID: plan.cartID, Err: plan.err})
	}
	return plan.result
}

// Logout forgets the session locally and in durable storage. The server
// is not told.
func (c *Controller) Logout(ctx context.Context) error {
	ctx = observability.WithOperation(ctx, "logout")
	return c.dispatchErr(ctx, LoggedOut{})
}

// token returns the bearer token, or ErrNotAuthenticated without making
// any call
func (c *Controller) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.state.Token
	c.mu.Unlock()

	if token == "" {
		observability.FromContext(ctx).Warn("operation needs a session")
		return "", domain.ErrNotAuthenticated
	}
	return token, nil
}

// dispatch applies ev and runs its effects, returning the new state
func (c *Controller) dispatch(ctx context.Context, ev Event) State {
	s, _ := c.apply(ctx, ev)
	return s
}

func (c *Controller) dispatchErr(ctx context.Context, ev Event) error {
	_, err := c.apply(ctx, ev)
	return err
}

// apply reduces under the lock. Token storage is written under the same
// lock so it always follows state order; notices and the catalog fetch
// run after it is released.
func (c *Controller) apply(ctx context.Context, ev Event) (State, error) {
	c.mu.Lock()
	next, eff := Reduce(c.state, ev)
	c.state = next

	var storeErr error
	switch {
	case eff.SaveToken != "":
		storeErr = c.tokens.Save(eff.SaveToken)
	case eff.ClearToken:
		storeErr = c.tokens.Clear()
	}
	snapshot := next.Clone()
	c.mu.Unlock()

	if storeErr != nil {
		observability.FromContext(ctx).Error("failed to update stored token",
			slog.String("error", storeErr.Error()))
	}
	if eff.Notice != nil {
		c.notifier.Notify(ctx, *eff.Notice)
	}
	if eff.FetchItems {
		_ = c.FetchItems(ctx)
	}
	return snapshot, storeErr
}

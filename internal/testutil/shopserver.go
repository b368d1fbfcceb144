package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"shopping-portal/internal/domain"

	"github.com/go-chi/chi/v5"
)

type fakeAccount struct {
	password string
	session  domain.Session
}

// FakeShop is an in-memory shop API served over httptest. It speaks the
// same wire format as the real backend and counts every request.
type FakeShop struct {
	Server *httptest.Server

	mu       sync.Mutex
	accounts map[string]fakeAccount // username -> account
	tokens   map[string]string      // token -> username
	items    []domain.Item
	carts    map[string]*domain.Cart // token -> cart
	orders   map[string][]domain.Order
	nextCart int64
	nextOrd  int64
	requests map[string]int
	failures map[string]int
	delays   map[string]time.Duration
	bodies   map[string][]byte
}

// NewFakeShop starts a FakeShop that is closed when the test ends
func NewFakeShop(t testing.TB) *FakeShop {
	t.Helper()

	f := &FakeShop{
		accounts: make(map[string]fakeAccount),
		tokens:   make(map[string]string),
		carts:    make(map[string]*domain.Cart),
		orders:   make(map[string][]domain.Order),
		requests: make(map[string]int),
		failures: make(map[string]int),
		delays:   make(map[string]time.Duration),
		bodies:   make(map[string][]byte),
		nextCart: 1,
		nextOrd:  1,
	}

	r := chi.NewRouter()
	r.Use(f.track)
	r.Post("/users/login", f.login)
	r.Get("/items", f.listItems)
	r.Group(func(r chi.Router) {
		r.Use(f.authenticate)
		r.Post("/carts", f.addToCart)
		r.Get("/carts", f.getCart)
		r.Post("/orders", f.createOrder)
		r.Get("/orders", f.listOrders)
	})

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base address of the fake shop
func (f *FakeShop) URL() string {
	return f.Server.URL
}

// AddUser registers credentials that log in with the given token
func (f *FakeShop) AddUser(id int64, username, password, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[username] = fakeAccount{
		password: password,
		session:  domain.Session{Token: token, User: &domain.User{ID: id, Username: username}},
	}
	f.tokens[token] = username
}

// SetItems replaces the catalog
func (f *FakeShop) SetItems(items ...domain.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append([]domain.Item{}, items...)
}

// SetCart replaces the cart held for token. A nil cart removes it.
func (f *FakeShop) SetCart(token string, cart *domain.Cart) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cart == nil {
		delete(f.carts, token)
		return
	}
	f.carts[token] = cart
}

// SetOrders replaces the order history of token
func (f *FakeShop) SetOrders(token string, orders []domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[token] = orders
}

// Cart returns the cart held for token, or nil
func (f *FakeShop) Cart(token string) *domain.Cart {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.carts[token]
}

// Orders returns the order history of token
func (f *FakeShop) Orders(token string) []domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Order{}, f.orders[token]...)
}

// Fail makes every request to "METHOD /path" answer with status
func (f *FakeShop) Fail(method, path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = status
}

// Delay makes every request to "METHOD /path" wait d before it is handled.
// The request is counted when it arrives.
func (f *FakeShop) Delay(method, path string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[method+" "+path] = d
}

// Requests returns how many requests reached "METHOD /path"
func (f *FakeShop) Requests(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method+" "+path]
}

// LastBody returns the body of the latest request to "METHOD /path"
func (f *FakeShop) LastBody(method, path string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[method+" "+path]
}

func (f *FakeShop) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		var body []byte
		if r.Body != nil {
			var raw json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&raw); err == nil {
				body = raw
			}
			r.Body = http.NoBody
		}

		f.mu.Lock()
		f.requests[key]++
		f.bodies[key] = body
		status, failing := f.failures[key]
		delay := f.delays[key]
		f.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}

		if failing {
			writeJSON(w, status, map[string]string{"error": "injected failure"})
			return
		}

		next.ServeHTTP(w, r.WithContext(withBody(r.Context(), body)))
	})
}

func (f *FakeShop) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		f.mu.Lock()
		_, ok := f.tokens[token]
		f.mu.Unlock()

		if token == "" || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(withToken(r.Context(), token)))
	})
}

func (f *FakeShop) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(bodyFrom(r.Context()), &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	f.mu.Lock()
	acct, ok := f.accounts[req.Username]
	f.mu.Unlock()

	if !ok || acct.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, acct.session)
}

func (f *FakeShop) listItems(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	items := append([]domain.Item{}, f.items...)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, items)
}

func (f *FakeShop) addToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID int64 `json:"item_id"`
	}
	if err := json.Unmarshal(bodyFrom(r.Context()), &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	token := tokenFrom(r.Context())

	f.mu.Lock()
	defer f.mu.Unlock()

	var item *domain.Item
	for i := range f.items {
		if f.items[i].ID == req.ItemID {
			item = &f.items[i]
		}
	}
	if item == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}

	cart, ok := f.carts[token]
	if !ok {
		cart = &domain.Cart{ID: f.nextCart, Items: []domain.CartLine{}}
		f.nextCart++
		f.carts[token] = cart
	}
	cart.Items = append(cart.Items, domain.CartLine{CartID: cart.ID, ItemID: item.ID, Item: *item})
	writeJSON(w, http.StatusCreated, cart)
}

func (f *FakeShop) getCart(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	cart, ok := f.carts[tokenFrom(r.Context())]
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart not found"})
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (f *FakeShop) createOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CartID int64 `json:"cart_id"`
	}
	if err := json.Unmarshal(bodyFrom(r.Context()), &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	token := tokenFrom(r.Context())

	f.mu.Lock()
	defer f.mu.Unlock()

	cart, ok := f.carts[token]
	if !ok || cart.ID != req.CartID || len(cart.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cart is empty or unknown"})
		return
	}

	order := domain.Order{ID: f.nextOrd}
	f.nextOrd++
	for _, line := range cart.Items {
		order.Items = append(order.Items, domain.OrderLine{OrderID: order.ID, ItemID: line.ItemID, Item: line.Item})
	}
	f.orders[token] = append(f.orders[token], order)
	delete(f.carts, token)
	writeJSON(w, http.StatusCreated, order)
}

func (f *FakeShop) listOrders(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	orders := append([]domain.Order{}, f.orders[tokenFrom(r.Context())]...)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, orders)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

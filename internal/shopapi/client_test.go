package shopapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shopping-portal/internal/domain"
	"shopping-portal/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "testuser", body["username"])
		assert.Equal(t, "password123", body["password"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"abc","user":{"id":1,"username":"testuser","password":""}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	session, err := client.Login(context.Background(), "testuser", "password123")

	require.NoError(t, err)
	assert.Equal(t, "abc", session.Token)
	require.NotNil(t, session.User)
	assert.Equal(t, "testuser", session.User.Username)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid username/password"}`))
	}))
	defer server.Close()

	session, err := NewClient(server.URL).Login(context.Background(), "testuser", "wrong")

	assert.Nil(t, session)
	assert.ErrorIs(t, err, domain.ErrRejected)
	assert.NotErrorIs(t, err, domain.ErrTransport)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "Invalid username/password", se.Message)
}

func TestLogin_MissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user":{"username":"testuser"}}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Login(context.Background(), "testuser", "password123")
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestListItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/items", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "catalog is public")
		w.Write([]byte(`[{"id":1,"name":"Laptop","description":"High-performance laptop","price":999.99},
			{"id":2,"name":"Mouse","description":"Wireless mouse","price":29.99}]`))
	}))
	defer server.Close()

	items, err := NewClient(server.URL).ListItems(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.Item{ID: 1, Name: "Laptop", Description: "High-performance laptop", Price: 999.99}, items[0])
	assert.Equal(t, "Mouse", items[1].Name)
}

func TestAddToCart_SendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/carts", r.URL.Path)
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))

		data, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"item_id":42}`, string(data))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message":"Item added to cart"}`))
	}))
	defer server.Close()

	err := NewClient(server.URL).AddToCart(context.Background(), "abc", 42)
	assert.NoError(t, err)
}

func TestAddToCart_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Item not found"}`))
	}))
	defer server.Close()

	err := NewClient(server.URL).AddToCart(context.Background(), "abc", 42)

	assert.ErrorIs(t, err, domain.ErrRejected)
	assert.NotErrorIs(t, err, domain.ErrCartNotFound, "only GET /carts reports a missing cart")
}

func TestGetCart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":5,"user_id":1,"items":[{"id":9,"cart_id":5,"item_id":2,
			"item":{"id":2,"name":"Mouse","description":"Wireless mouse","price":29.99}}]}`))
	}))
	defer server.Close()

	cart, err := NewClient(server.URL).GetCart(context.Background(), "abc")

	require.NoError(t, err)
	assert.Equal(t, int64(5), cart.ID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2), cart.Items[0].ItemID)
	assert.Equal(t, "Mouse", cart.Items[0].Item.Name)
}

func TestGetCart_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Cart not found"}`))
	}))
	defer server.Close()

	cart, err := NewClient(server.URL).GetCart(context.Background(), "abc")

	assert.Nil(t, cart)
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
	assert.ErrorIs(t, err, domain.ErrRejected)
}

func TestCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"cart_id":5}`, string(data))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message":"Order created successfully","order_id":3}`))
	}))
	defer server.Close()

	assert.NoError(t, NewClient(server.URL).CreateOrder(context.Background(), "abc", 5))
}

func TestListOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		w.Write([]byte(`[{"id":1,"items":[]},{"id":2}]`))
	}))
	defer server.Close()

	orders, err := NewClient(server.URL).ListOrders(context.Background(), "abc")

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(1), orders[0].ID)
	assert.Equal(t, int64(2), orders[1].ID)
}

func TestDo_HTTPErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"Bad Request", http.StatusBadRequest},
		{"Unauthorized", http.StatusUnauthorized},
		{"Internal Server Error", http.StatusInternalServerError},
		{"Service Unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			orders, err := NewClient(server.URL).ListOrders(context.Background(), "abc")

			assert.Nil(t, orders)
			assert.ErrorIs(t, err, domain.ErrRejected)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.statusCode, se.StatusCode)
			assert.Empty(t, se.Message)
		})
	}
}

func TestDo_NoRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).ListItems(context.Background())

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	items, err := NewClient(url).ListItems(context.Background())

	assert.Nil(t, items)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.NotErrorIs(t, err, domain.ErrRejected)
}

func TestDo_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 5, "items": [`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).GetCart(context.Background(), "abc")

	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.True(t, strings.Contains(err.Error(), "failed to decode response"), err.Error())
}

func TestDo_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(server.URL).ListItems(ctx)

	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), err.Error())
}

func TestDo_RequestID(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("X-Request-ID"))
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.ListItems(observability.WithRequestID(context.Background(), "req-42"))
	require.NoError(t, err)
	_, err = client.ListItems(context.Background())
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, "req-42", seen[0])
	assert.NotEmpty(t, seen[1], "a request id is generated when the context has none")
}

func TestNewClient_Options(t *testing.T) {
	client := NewClient("http://example.com")
	assert.Equal(t, time.Duration(0), client.httpClient.Timeout, "no timeout unless configured")

	rt := http.DefaultTransport
	client = NewClient("http://example.com", WithTimeout(2*time.Second), WithTransport(rt))
	assert.Equal(t, 2*time.Second, client.httpClient.Timeout)
	assert.Equal(t, rt, client.httpClient.Transport)
}

func TestStatusError_Error(t *testing.T) {
	assert.Equal(t, "get_cart: status 404: Cart not found",
		(&StatusError{Op: opGetCart, StatusCode: 404, Message: "Cart not found"}).Error())
	assert.Equal(t, "list_orders: status 500",
		(&StatusError{Op: opListOrders, StatusCode: 500}).Error())
}

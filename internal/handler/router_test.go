package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shopping-portal/internal/domain"
	"shopping-portal/internal/notify"
	"shopping-portal/internal/security"
	"shopping-portal/internal/shopapi"
	"shopping-portal/internal/state"
	"shopping-portal/internal/testutil"
	"shopping-portal/internal/tokenstore"
	ws "shopping-portal/internal/websocket"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frontend is the whole web frontend wired against a fake shop
type frontend struct {
	shop    *testutil.FakeShop
	store   *tokenstore.MemoryStore
	notices *testutil.NoticeRecorder
	ctrl    *state.Controller
	server  *httptest.Server
	csrf    string
}

func newFrontend(t *testing.T, storedToken string) *frontend {
	t.Helper()

	shop := testutil.NewFakeShop(t)
	shop.AddUser(1, "testuser", "password123", "abc")
	shop.SetItems(
		testutil.NewTestItem(testutil.WithItemID(42), testutil.WithItemName("Widget")),
		testutil.NewTestItem(testutil.WithItemID(43), testutil.WithItemName("Gadget")),
	)

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = hub.Run(ctx)
	}()

	store := tokenstore.NewMemoryStore(storedToken)
	notices := testutil.NewNoticeRecorder()
	ctrl := state.NewController(shopapi.NewClient(shop.URL()), store, notify.Multi{hub, notices})
	require.NoError(t, ctrl.Start(context.Background()))

	tokens, err := security.NewTokenManager("")
	require.NoError(t, err)

	server := httptest.NewServer(NewRouter(RouterConfig{
		Controller:     ctrl,
		Hub:            hub,
		CSRF:           tokens,
		AllowedOrigins: []string{"http://localhost:5173"},
	}))

	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return &frontend{
		shop:    shop,
		store:   store,
		notices: notices,
		ctrl:    ctrl,
		server:  server,
		csrf:    tokens.Token(),
	}
}

func (f *frontend) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequest(http.MethodPost, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", f.csrf)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *frontend) page(t *testing.T) string {
	t.Helper()
	resp, err := http.Get(f.server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	var b strings.Builder
	_, err = io.Copy(&b, resp.Body)
	require.NoError(t, err)
	return b.String()
}

func (f *frontend) login(t *testing.T) {
	t.Helper()
	resp := f.post(t, "/login", LoginRequest{Username: "testuser", Password: "password123"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRouter_StartsOnLoginWithoutToken(t *testing.T) {
	f := newFrontend(t, "")

	assert.Contains(t, f.page(t), "Shopping Cart Login")
	assert.Zero(t, f.shop.Requests(http.MethodGet, "/items"))
}

func TestRouter_StoredTokenShowsCatalog(t *testing.T) {
	f := newFrontend(t, "abc")

	body := f.page(t)
	assert.Contains(t, body, "Available Items")
	assert.Contains(t, body, "Widget")
	assert.Equal(t, 1, f.shop.Requests(http.MethodGet, "/items"))
}

func TestRouter_LoginFlow(t *testing.T) {
	f := newFrontend(t, "")

	f.login(t)

	stored, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", stored)
	assert.Equal(t, 1, f.shop.Requests(http.MethodGet, "/items"))

	body := f.page(t)
	assert.Contains(t, body, "Welcome, testuser")
	assert.Contains(t, body, "Gadget")
	assert.Empty(t, f.notices.Notices())
}

func TestRouter_InvalidLogin(t *testing.T) {
	f := newFrontend(t, "")

	resp := f.post(t, "/login", LoginRequest{Username: "testuser", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, []string{state.MsgInvalidCredentials}, f.notices.Messages())
	stored, _ := f.store.Load()
	assert.Empty(t, stored)
	assert.Contains(t, f.page(t), "Shopping Cart Login")
}

func TestRouter_LoginRejectsBadBody(t *testing.T) {
	f := newFrontend(t, "")

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/login", strings.NewReader("{"))
	require.NoError(t, err)
	req.Header.Set("X-CSRF-Token", f.csrf)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, f.shop.Requests(http.MethodPost, "/users/login"))
}

func TestRouter_ActionsRequireCSRFToken(t *testing.T) {
	f := newFrontend(t, "abc")

	resp, err := http.Post(f.server.URL+"/checkout", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, f.shop.Requests(http.MethodGet, "/carts"))
	assert.Zero(t, f.shop.Requests(http.MethodPost, "/orders"))
}

func TestRouter_ActionsRequireSession(t *testing.T) {
	f := newFrontend(t, "")

	for _, path := range []string{"/cart/items/42", "/cart", "/checkout", "/orders"} {
		resp := f.post(t, path, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
	assert.Zero(t, f.shop.Requests(http.MethodPost, "/carts"))
	assert.Zero(t, f.shop.Requests(http.MethodGet, "/carts"))
	assert.Empty(t, f.notices.Notices())
}

func TestRouter_AddToCart(t *testing.T) {
	f := newFrontend(t, "abc")

	resp := f.post(t, "/cart/items/42", nil)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.JSONEq(t, `{"item_id":42}`, string(f.shop.LastBody(http.MethodPost, "/carts")))
	assert.Equal(t, []string{state.MsgAddedToCart}, f.notices.Messages())
	assert.Nil(t, f.ctrl.Snapshot().Cart, "adding never touches the local cart")
}

func TestRouter_AddToCartRejected(t *testing.T) {
	f := newFrontend(t, "abc")
	f.shop.Fail(http.MethodPost, "/carts", http.StatusInternalServerError)
	before := f.ctrl.Snapshot()

	resp := f.post(t, "/cart/items/42", nil)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{state.MsgAddToCartFailed}, f.notices.Messages())
	after := f.ctrl.Snapshot()
	assert.Equal(t, before.Items, after.Items)
	assert.Equal(t, before.Cart, after.Cart)
}

func TestRouter_AddToCartBadID(t *testing.T) {
	f := newFrontend(t, "abc")

	for _, path := range []string{"/cart/items/abc", "/cart/items/0", "/cart/items/-1"} {
		resp := f.post(t, path, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
	assert.Zero(t, f.shop.Requests(http.MethodPost, "/carts"))
}

func TestRouter_ViewCart(t *testing.T) {
	f := newFrontend(t, "abc")
	f.post(t, "/cart/items/42", nil)
	f.notices.Reset()

	resp := f.post(t, "/cart", nil)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"Cart Items:\nCart ID: 1, Item: Widget (ID: 42)"}, f.notices.Messages())
}

func TestRouter_ViewCartNotFound(t *testing.T) {
	f := newFrontend(t, "abc")

	f.post(t, "/cart", nil)

	assert.Equal(t, []string{state.MsgNoCart}, f.notices.Messages())
}

func TestRouter_CheckoutEmptyCart(t *testing.T) {
	f := newFrontend(t, "abc")
	f.shop.SetCart("abc", &domain.Cart{ID: 5, Items: []domain.CartLine{}})

	resp := f.post(t, "/checkout", nil)

	var out CheckoutResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "empty_cart", out.Result)
	assert.Equal(t, []string{state.MsgCheckoutEmptyCart}, f.notices.Messages())
	assert.Zero(t, f.shop.Requests(http.MethodPost, "/orders"))
}

func TestRouter_CheckoutPlacesOneOrder(t *testing.T) {
	f := newFrontend(t, "abc")
	f.post(t, "/cart/items/42", nil)
	f.post(t, "/cart/items/43", nil)
	f.post(t, "/cart", nil)
	f.notices.Reset()

	resp := f.post(t, "/checkout", nil)

	var out CheckoutResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out.Result)
	assert.Equal(t, 1, f.shop.Requests(http.MethodPost, "/orders"))
	assert.JSONEq(t, `{"cart_id":1}`, string(f.shop.LastBody(http.MethodPost, "/orders")))
	assert.Equal(t, []string{state.MsgOrderPlaced}, f.notices.Messages())
	assert.Nil(t, f.ctrl.Snapshot().Cart)

	f.notices.Reset()
	f.post(t, "/orders", nil)
	assert.Equal(t, []string{"Order History:\nOrder ID: 1"}, f.notices.Messages())
}

// abandon sends an action and drops the connection after wait, the way a
// page reload abandons an in-flight fetch
func (f *frontend) abandon(t *testing.T, path string, wait time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.server.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("X-CSRF-Token", f.csrf)

	resp, err := http.DefaultClient.Do(req)
	if err == nil {
		resp.Body.Close()
		t.Fatalf("%s answered before the client gave up", path)
	}
}

func TestRouter_CheckoutSurvivesClientDisconnect(t *testing.T) {
	f := newFrontend(t, "abc")
	f.shop.SetCart("abc", testutil.NewTestCart(5, testutil.NewTestItem(testutil.WithItemID(42))))
	f.post(t, "/cart", nil)
	f.notices.Reset()
	f.shop.Delay(http.MethodPost, "/orders", 300*time.Millisecond)

	f.abandon(t, "/checkout", 50*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(f.notices.Notices()) == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{state.MsgOrderPlaced}, f.notices.Messages())
	assert.Nil(t, f.ctrl.Snapshot().Cart)
	assert.Equal(t, 1, f.shop.Requests(http.MethodPost, "/orders"))
	assert.Len(t, f.shop.Orders("abc"), 1)
}

func TestRouter_AddToCartSurvivesClientDisconnect(t *testing.T) {
	f := newFrontend(t, "abc")
	f.shop.Delay(http.MethodPost, "/carts", 300*time.Millisecond)

	f.abandon(t, "/cart/items/42", 50*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(f.notices.Notices()) == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{state.MsgAddedToCart}, f.notices.Messages())
	require.NotNil(t, f.shop.Cart("abc"))
	assert.Len(t, f.shop.Cart("abc").Items, 1)
}

func TestRouter_Logout(t *testing.T) {
	f := newFrontend(t, "")
	f.login(t)
	f.post(t, "/cart/items/42", nil)
	f.post(t, "/cart", nil)
	f.notices.Reset()

	resp := f.post(t, "/logout", nil)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	s := f.ctrl.Snapshot()
	assert.Empty(t, s.Token)
	assert.Nil(t, s.User)
	assert.Nil(t, s.Cart)
	stored, _ := f.store.Load()
	assert.Empty(t, stored)
	assert.Contains(t, f.page(t), "Shopping Cart Login")
	assert.Empty(t, f.notices.Notices())
}

func TestRouter_NoticesReachWebSocket(t *testing.T) {
	f := newFrontend(t, "abc")

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/notices"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// registration with the hub is asynchronous, so keep acting until a
	// notice makes it through
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	got := make(chan ws.ServerMessage, 64)
	go func() {
		defer close(got)
		for {
			var msg ws.ServerMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			got <- msg
		}
	}()

	deadline := time.After(3 * time.Second)
	for {
		f.post(t, "/cart/items/42", nil)
		select {
		case msg, ok := <-got:
			require.True(t, ok, "websocket closed early")
			if msg.Type == ws.TypeRefresh {
				continue
			}
			assert.Equal(t, ws.TypeNotice, msg.Type)
			assert.Equal(t, domain.NoticeInfo, msg.Kind)
			assert.Equal(t, state.MsgAddedToCart, msg.Message)
			refresh := <-got
			assert.Equal(t, ws.TypeRefresh, refresh.Type)
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("no notice arrived over the websocket")
		}
	}
}

func TestRouter_WebSocketRejectsForeignOrigin(t *testing.T) {
	f := newFrontend(t, "")

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/notices"
	header := http.Header{"Origin": {"http://evil.test"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	f := newFrontend(t, "")

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		resp, err := http.Get(f.server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

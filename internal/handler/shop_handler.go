package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"shopping-portal/internal/domain"
	"shopping-portal/internal/state"

	"github.com/go-chi/chi/v5"
)

// Refresher tells connected pages to re-render
type Refresher interface {
	Refresh(ctx context.Context)
}

// ShopHandler handles the cart, checkout and order history actions
type ShopHandler struct {
	ctrl      *state.Controller
	refresher Refresher
}

// NewShopHandler creates a new shop action handler
func NewShopHandler(ctrl *state.Controller, refresher Refresher) *ShopHandler {
	return &ShopHandler{
		ctrl:      ctrl,
		refresher: refresher,
	}
}

// CheckoutResponse reports how a checkout ended
type CheckoutResponse struct {
	Result string `json:"result"`
}

// AddToCart adds the item named in the path to the cart
func (h *ShopHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || itemID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	ctx := detach(r)
	h.finish(ctx, w, h.ctrl.AddToCart(ctx, itemID))
}

// ViewCart fetches the cart and pushes its summary as a notice
func (h *ShopHandler) ViewCart(w http.ResponseWriter, r *http.Request) {
	ctx := detach(r)
	h.finish(ctx, w, h.ctrl.ViewCart(ctx))
}

// ViewOrders fetches the order history and pushes it as a notice
func (h *ShopHandler) ViewOrders(w http.ResponseWriter, r *http.Request) {
	ctx := detach(r)
	h.finish(ctx, w, h.ctrl.ViewOrderHistory(ctx))
}

// Checkout places an order for the current cart
func (h *ShopHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := detach(r)
	result := h.ctrl.Checkout(ctx)
	h.refresher.Refresh(ctx)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(CheckoutResponse{Result: result.String()})
}

// finish refreshes the pages and answers the action request. Failures
// that produced a notice are not HTTP errors.
func (h *ShopHandler) finish(ctx context.Context, w http.ResponseWriter, err error) {
	h.refresher.Refresh(ctx)

	if errors.Is(err, domain.ErrNotAuthenticated) {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// detach keeps the request's values but not its cancellation: once an
// action has started, a dropped connection or page reload must not abort
// the shop API call already in flight
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

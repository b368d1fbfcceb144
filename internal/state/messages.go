package state

import (
	"fmt"
	"strings"

	"shopping-portal/internal/domain"
)

// Notice texts
const (
	MsgInvalidCredentials = "Invalid username/password"
	MsgLoginFailed        = "Login failed. Please try again."

	MsgAddedToCart     = "Item added to cart!"
	MsgAddToCartFailed = "Failed to add item to cart"

	MsgCartEmpty       = "Your cart is empty"
	MsgNoCart          = "No cart found"
	MsgCartFetchFailed = "Failed to fetch cart"

	MsgNoOrders          = "No orders found"
	MsgOrdersRejected    = "Failed to fetch orders"
	MsgOrderFetchFailed  = "Failed to fetch order history"
	MsgCheckoutEmptyCart = "Your cart is empty. Add some items first!"
	MsgOrderPlaced       = "Order successful!"
	MsgOrderRejected     = "Failed to create order"
	MsgCheckoutFailed    = "Failed to process checkout"
)

// CartSummary flattens a non-empty cart into one line per entry
func CartSummary(cart *domain.Cart) string {
	var b strings.Builder
	b.WriteString("Cart Items:")
	for _, line := range cart.Items {
		fmt.Fprintf(&b, "\nCart ID: %d, Item: %s (ID: %d)", line.CartID, line.Item.Name, line.ItemID)
	}
	return b.String()
}

// OrderSummary lists the order identifiers
func OrderSummary(orders []domain.Order) string {
	var b strings.Builder
	b.WriteString("Order History:")
	for _, o := range orders {
		fmt.Fprintf(&b, "\nOrder ID: %d", o.ID)
	}
	return b.String()
}

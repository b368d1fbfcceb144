package state

import (
	"errors"

	"shopping-portal/internal/domain"
)

// Event is something that happened to the client: a user action or the
// outcome of a network call
type Event interface {
	event()
}

type (
	// TokenRestored: a token was found in durable storage at startup
	TokenRestored struct{ Token string }
	// CredentialsChanged: the login form was edited
	CredentialsChanged struct{ Username, Password string }
	LoginStarted       struct{}
	LoginSucceeded     struct{ Session domain.Session }
	LoginFailed        struct{ Err error }
	LoggedOut          struct{}

	ItemsLoaded struct{ Items []domain.Item }

	ItemAdded     struct{ ItemID int64 }
	ItemAddFailed struct {
		ItemID int64
		Err    error
	}

	CartLoaded     struct{ Cart *domain.Cart }
	CartLoadFailed struct{ Err error }
	// CartRefreshed: checkout re-fetched the cart; no notice is due
	CartRefreshed struct{ Cart *domain.Cart }

	OrdersLoaded     struct{ Orders []domain.Order }
	OrdersLoadFailed struct{ Err error }

	CheckoutFinished struct {
		Result CheckoutResult
		Err    error
	}
)

func (TokenRestored) event()      {}
func (CredentialsChanged) event() {}
func (LoginStarted) event()       {}
func (LoginSucceeded) event()     {}
func (LoginFailed) event()        {}
func (LoggedOut) event()          {}
func (ItemsLoaded) event()        {}
func (ItemAdded) event()          {}
func (ItemAddFailed) event()      {}
func (CartLoaded) event()         {}
func (CartLoadFailed) event()     {}
func (CartRefreshed) event()      {}
func (OrdersLoaded) event()       {}
func (OrdersLoadFailed) event()   {}
func (CheckoutFinished) event()   {}

// Effect is the work an event leaves for the controller
type Effect struct {
	// Notice, when set, is shown to the user
	Notice *domain.Notice
	// SaveToken, when non-empty, is written to durable storage
	SaveToken string
	// ClearToken removes the durable token
	ClearToken bool
	// FetchItems asks for one catalog fetch
	FetchItems bool
}

func notice(n domain.Notice) *domain.Notice {
	return &n
}

// Reduce applies ev to s. It never mutates s.
func Reduce(s State, ev Event) (State, Effect) {
	next := s
	var eff Effect

	switch ev := ev.(type) {
	case TokenRestored:
		next.Token = ev.Token

	case CredentialsChanged:
		next.Username = ev.Username
		next.Password = ev.Password

	case LoginStarted:
		next.Loading = true

	case LoginSucceeded:
		next.Loading = false
		next.Token = ev.Session.Token
		next.User = ev.Session.User
		next.LoginError = ""
		eff.SaveToken = ev.Session.Token

	case LoginFailed:
		next.Loading = false
		msg := MsgLoginFailed
		if errors.Is(ev.Err, domain.ErrRejected) {
			msg = MsgInvalidCredentials
		}
		next.LoginError = msg
		eff.Notice = notice(domain.Failure(msg))

	case LoggedOut:
		next.Token = ""
		next.User = nil
		next.Cart = nil
		next.Orders = nil
		next.Username = ""
		next.Password = ""
		next.LoginError = ""
		eff.ClearToken = true

	case ItemsLoaded:
		next.Items = ev.Items

	case ItemAdded:
		eff.Notice = notice(domain.Info(MsgAddedToCart))

	case ItemAddFailed:
		eff.Notice = notice(domain.Failure(MsgAddToCartFailed))

	case CartLoaded:
		next.Cart = ev.Cart
		if ev.Cart.IsEmpty() {
			eff.Notice = notice(domain.Info(MsgCartEmpty))
		} else {
			eff.Notice = notice(domain.Info(CartSummary(ev.Cart)))
		}

	case CartLoadFailed:
		msg := MsgCartFetchFailed
		if errors.Is(ev.Err, domain.ErrRejected) {
			msg = MsgNoCart
		}
		eff.Notice = notice(domain.Failure(msg))

	case CartRefreshed:
		next.Cart = ev.Cart

	case OrdersLoaded:
		next.Orders = ev.Orders
		if len(ev.Orders) == 0 {
			eff.Notice = notice(domain.Info(MsgNoOrders))
		} else {
			eff.Notice = notice(domain.Info(OrderSummary(ev.Orders)))
		}

	case OrdersLoadFailed:
		msg := MsgOrderFetchFailed
		if errors.Is(ev.Err, domain.ErrRejected) {
			msg = MsgOrdersRejected
		}
		eff.Notice = notice(domain.Failure(msg))

	case CheckoutFinished:
		switch ev.Result {
		case CheckoutOK:
			// the server is trusted to have emptied the cart
			next.Cart = nil
			eff.Notice = notice(domain.Info(MsgOrderPlaced))
		case CheckoutEmptyCart:
			eff.Notice = notice(domain.Info(MsgCheckoutEmptyCart))
		default:
			msg := MsgCheckoutFailed
			if errors.Is(ev.Err, domain.ErrRejected) {
				msg = MsgOrderRejected
			}
			eff.Notice = notice(domain.Failure(msg))
		}
	}

	eff.FetchItems = s.Token == "" && next.Token != ""
	return next, eff
}

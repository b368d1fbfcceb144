// Package state holds the client's view state and the controller that
// moves it forward one network round trip at a time.
//
// State transitions are pure: Reduce maps (State, Event) to the next
// State plus the Effect the controller has to carry out. Nothing in
// this file talks to the network or to storage.
package state

import (
	"slices"

	"shopping-portal/internal/domain"
)

// View is the top-level UI mode
type View int

const (
	ViewLogin View = iota
	ViewCatalog
)

func (v View) String() string {
	if v == ViewCatalog {
		return "catalog"
	}
	return "login"
}

// State is everything the client remembers during a session
type State struct {
	Token  string
	User   *domain.User
	Items  []domain.Item
	Cart   *domain.Cart
	Orders []domain.Order

	// Loading is set while a login call is in flight
	Loading bool

	// Login form
	Username   string
	Password   string
	LoginError string
}

// Authenticated reports whether a bearer token is held
func (s State) Authenticated() bool {
	return s.Token != ""
}

// View selects the UI mode. It depends on the token and nothing else.
func (s State) View() View {
	if s.Authenticated() {
		return ViewCatalog
	}
	return ViewLogin
}

// Clone returns a copy that shares no slices or pointers with s
func (s State) Clone() State {
	out := s
	out.Items = slices.Clone(s.Items)
	out.Orders = slices.Clone(s.Orders)
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Cart != nil {
		c := *s.Cart
		c.Items = slices.Clone(s.Cart.Items)
		out.Cart = &c
	}
	return out
}

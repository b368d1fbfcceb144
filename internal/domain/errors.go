package domain

import "errors"

var (
	// ErrRejected means the API answered with a status outside 2xx
	ErrRejected = errors.New("request rejected by server")
	// ErrTransport means the request never produced a usable response
	ErrTransport = errors.New("transport failure")
	// ErrCartNotFound is the rejection returned when the user has no cart yet
	ErrCartNotFound = errors.New("cart not found")
	// ErrNotAuthenticated is returned before any call that needs a token
	ErrNotAuthenticated = errors.New("not authenticated")
)

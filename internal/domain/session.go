package domain

// User is the account returned by a successful login
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Session is the authenticated identity of the client.
// An empty Token means no session.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// TokenStore persists the raw bearer token between runs
type TokenStore interface {
	// Load returns the stored token, or "" when none is stored
	Load() (string, error)
	Save(token string) error
	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear() error
}

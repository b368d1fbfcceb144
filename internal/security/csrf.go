package security

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"errors"
)

var ErrInvalidToken = errors.New("invalid CSRF token")

// TokenManager holds the CSRF token of the frontend process.
// The frontend serves a single local user, so one token per process
// plays the role of the per-session synchronizer token.
type TokenManager struct {
	token string
}

// NewTokenManager creates a token manager. A non-empty secret is used as
// the token verbatim so that it survives restarts; otherwise a random
// token is generated.
func NewTokenManager(secret string) (*TokenManager, error) {
	if secret != "" {
		return &TokenManager{token: secret}, nil
	}
	token, err := Generate()
	if err != nil {
		return nil, err
	}
	return &TokenManager{token: token}, nil
}

// Token returns the token pages must echo back
func (tm *TokenManager) Token() string {
	return tm.token
}

// Verify compares submitted against the token in constant time
func (tm *TokenManager) Verify(submitted string) error {
	if submitted == "" || !hmac.Equal([]byte(tm.token), []byte(submitted)) {
		return ErrInvalidToken
	}
	return nil
}

// Generate creates a cryptographically secure random CSRF token.
// The token is returned as a 64-character hex string.
func Generate() (string, error) {
	// 32 random bytes (256 bits)
	randomBytes := make([]byte, 32)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(randomBytes), nil
}

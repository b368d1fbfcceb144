package shopapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"shopping-portal/internal/domain"
)

// ErrContract means a request or response does not match the API contract
var ErrContract = errors.New("api contract violation")

// StatusError is a response outside the 2xx range
type StatusError struct {
	Op         string
	StatusCode int
	// Message is the server's "error" field, when it sent one
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// Is makes every StatusError match domain.ErrRejected, and a 404 from
// GET /carts additionally match domain.ErrCartNotFound
func (e *StatusError) Is(target error) bool {
	switch target {
	case domain.ErrRejected:
		return true
	case domain.ErrCartNotFound:
		return e.Op == opGetCart && e.StatusCode == http.StatusNotFound
	}
	return false
}

func newStatusError(op string, resp *http.Response) *StatusError {
	se := &StatusError{Op: op, StatusCode: resp.StatusCode}

	var body struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && json.Unmarshal(data, &body) == nil {
		se.Message = body.Error
	}
	return se
}

package shopapi

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

//go:embed openapi.yaml
var contractSpec []byte

// LoadContract parses the embedded API description, pointed at baseURL
func LoadContract(ctx context.Context, baseURL string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(contractSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load API contract: %w", err)
	}
	doc.Servers = openapi3.Servers{{URL: baseURL}}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("API contract is invalid: %w", err)
	}
	return doc, nil
}

// ValidatingTransport checks outgoing requests, and optionally incoming
// responses, against the API contract before handing them on
type ValidatingTransport struct {
	next              http.RoundTripper
	router            routers.Router
	validateResponses bool
}

// NewValidatingTransport wraps next (http.DefaultTransport when nil).
// Request violations fail the call; response violations are only logged.
func NewValidatingTransport(ctx context.Context, baseURL string, next http.RoundTripper, validateResponses bool) (*ValidatingTransport, error) {
	doc, err := LoadContract(ctx, baseURL)
	if err != nil {
		return nil, err
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build contract router: %w", err)
	}

	if next == nil {
		next = http.DefaultTransport
	}

	slog.Info("API contract validation enabled",
		slog.String("base_url", baseURL),
		slog.Bool("validate_responses", validateResponses))

	return &ValidatingTransport{
		next:              next,
		router:            router,
		validateResponses: validateResponses,
	}, nil
}

// RoundTrip implements http.RoundTripper
func (t *ValidatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to buffer request body: %w", err)
		}
		body = data
	}

	route, pathParams, err := t.router.FindRoute(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s is not part of the API", ErrContract, req.Method, req.URL.Path)
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    withBody(req, body),
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}
	if err := openapi3filter.ValidateRequest(req.Context(), input); err != nil {
		slog.Warn("outgoing request violates API contract",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrContract, err)
	}

	resp, err := t.next.RoundTrip(withBody(req, body))
	if err != nil || !t.validateResponses {
		return resp, err
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to buffer response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))

	respInput := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: input,
		Status:                 resp.StatusCode,
		Header:                 resp.Header,
		Body:                   io.NopCloser(bytes.NewReader(data)),
		Options: &openapi3filter.Options{
			IncludeResponseStatus: true,
			AuthenticationFunc:    openapi3filter.NoopAuthenticationFunc,
		},
	}
	if err := openapi3filter.ValidateResponse(req.Context(), respInput); err != nil {
		slog.Warn("response violates API contract",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("error", err.Error()))
	}

	return resp, nil
}

// withBody returns a shallow clone of req reading from its own copy of body
func withBody(req *http.Request, body []byte) *http.Request {
	clone := req.Clone(req.Context())
	if body == nil {
		clone.Body = http.NoBody
		return clone
	}
	clone.Body = io.NopCloser(bytes.NewReader(body))
	clone.ContentLength = int64(len(body))
	clone.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return clone
}

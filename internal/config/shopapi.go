package config

import (
	"context"
	"fmt"

	"shopping-portal/internal/shopapi"
)

// NewShopClient builds the shop API client described by cfg, wrapping its
// transport in contract validation unless OPENAPI_VALIDATION=off
func NewShopClient(ctx context.Context, cfg *Config) (*shopapi.Client, error) {
	opts := []shopapi.Option{shopapi.WithTimeout(cfg.APITimeout)}

	if cfg.OpenAPIValidation != ValidationOff {
		rt, err := shopapi.NewValidatingTransport(ctx, cfg.APIBaseURL, nil, cfg.OpenAPIValidation == ValidationFull)
		if err != nil {
			return nil, fmt.Errorf("failed to enable contract validation: %w", err)
		}
		opts = append(opts, shopapi.WithTransport(rt))
	}

	return shopapi.NewClient(cfg.APIBaseURL, opts...), nil
}

package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// OpenAPI validation modes
const (
	ValidationOff     = "off"
	ValidationRequest = "request"
	ValidationFull    = "full"
)

// Config holds application configuration
type Config struct {
	Host              string // listen address; loopback unless deliberately exposed
	Port              string
	APIBaseURL        string
	APITimeout        time.Duration // 0 means no client timeout
	TokenFile         string
	AllowedOrigins    string
	Environment       string // development, staging, production
	OpenAPIValidation string // off, request, full
	EventsAMQPURL     string // empty disables event publishing
	CSRFSecret        string // empty means a random per-process token
}

// Load reads configuration from the environment (and .env if present) and validates it
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	timeout, err := getEnvDuration("API_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Host:              getEnv("HOST", "127.0.0.1"),
		Port:              getEnv("PORT", "5173"),
		APIBaseURL:        strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000"), "/"),
		APITimeout:        timeout,
		TokenFile:         getEnv("TOKEN_FILE", defaultTokenFile()),
		AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "http://localhost:5173"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		OpenAPIValidation: strings.ToLower(getEnv("OPENAPI_VALIDATION", ValidationRequest)),
		EventsAMQPURL:     getEnv("EVENTS_AMQP_URL", ""),
		CSRFSecret:        getEnv("CSRF_SECRET", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration for correctness
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("API_BASE_URL is not a valid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute http(s) URL (got %q)", c.APIBaseURL)
	}

	if c.APITimeout < 0 {
		return fmt.Errorf("API_TIMEOUT must not be negative (got %s)", c.APITimeout)
	}

	switch c.OpenAPIValidation {
	case ValidationOff, ValidationRequest, ValidationFull:
	default:
		return fmt.Errorf("OPENAPI_VALIDATION must be one of off, request, full (got %q)", c.OpenAPIValidation)
	}

	if c.TokenFile == "" {
		return fmt.Errorf("TOKEN_FILE must not be empty")
	}

	if c.IsProduction() {
		if c.OpenAPIValidation == ValidationFull {
			return fmt.Errorf("OPENAPI_VALIDATION=full is only supported outside production")
		}
		if c.CSRFSecret != "" && len(c.CSRFSecret) < 32 {
			return fmt.Errorf("CSRF_SECRET must be at least 32 characters in production (got %d)", len(c.CSRFSecret))
		}
		if u.Scheme != "https" {
			log.Println("WARNING: API_BASE_URL does not use HTTPS in production")
		}
	}

	return nil
}

// ListenAddr is the host:port the web frontend binds
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsLoopback reports whether Host only accepts connections from this machine.
// The frontend holds one session for whoever can reach it.
func (c *Config) IsLoopback() bool {
	if c.Host == "localhost" {
		return true
	}
	ip := net.ParseIP(c.Host)
	return ip != nil && ip.IsLoopback()
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == ""
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".shopping-portal-token"
	}
	return filepath.Join(dir, "shopping-portal", "token")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s is not a valid duration: %w", key, err)
	}
	return d, nil
}

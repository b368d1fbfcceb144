package handler

import (
	"net/http"

	"shopping-portal/internal/middleware"
	"shopping-portal/internal/security"
	"shopping-portal/internal/state"
	ws "shopping-portal/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds what the frontend routes are built from
type RouterConfig struct {
	Controller     *state.Controller
	Hub            *ws.Hub
	CSRF           *security.TokenManager
	AllowedOrigins []string
	// ActionLimiter rate limits the POST actions; nil disables limiting
	ActionLimiter *middleware.RateLimiter
	// ReadyChecks are probed by /health/ready
	ReadyChecks map[string]CheckFunc
}

// NewRouter wires the pages, actions and notice socket
func NewRouter(cfg RouterConfig) chi.Router {
	pageHandler := NewPageHandler(cfg.Controller, cfg.CSRF)
	authHandler := NewAuthHandler(cfg.Controller, cfg.Hub)
	shopHandler := NewShopHandler(cfg.Controller, cfg.Hub)
	wsHandler := NewWebSocketHandler(cfg.Hub, cfg.AllowedOrigins)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestContext)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Metrics())

	r.Get("/health", Health)
	r.Get("/health/ready", Ready(cfg.ReadyChecks))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", pageHandler.Index)
	r.Get("/index.html", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusMovedPermanently)
	})

	r.Get("/ws/notices", wsHandler.HandleConnection)

	r.Group(func(r chi.Router) {
		r.Use(middleware.CSRF(cfg.CSRF))
		if cfg.ActionLimiter != nil {
			r.Use(cfg.ActionLimiter.Middleware())
		}

		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(cfg.Controller))

			r.Post("/cart/items/{id}", shopHandler.AddToCart)
			r.Post("/cart", shopHandler.ViewCart)
			r.Post("/checkout", shopHandler.Checkout)
			r.Post("/orders", shopHandler.ViewOrders)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r
}

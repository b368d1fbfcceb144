package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopping-portal/internal/config"
	"shopping-portal/internal/handler"
	"shopping-portal/internal/messaging"
	"shopping-portal/internal/middleware"
	"shopping-portal/internal/notify"
	"shopping-portal/internal/observability"
	"shopping-portal/internal/security"
	"shopping-portal/internal/state"
	"shopping-portal/internal/tokenstore"
	"shopping-portal/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}
	observability.InitLogger(os.Stderr, logLevel, logFormat)

	slog.Info("starting shop web frontend",
		slog.String("api_base_url", cfg.APIBaseURL),
		slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api, err := config.NewShopClient(ctx, cfg)
	if err != nil {
		slog.Error("failed to create shop API client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	hub := websocket.NewHub()

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go func() {
		if err := hub.Run(hubCtx); err != nil && err != context.Canceled {
			slog.Error("hub error", slog.String("error", err.Error()))
		}
	}()
	slog.Info("websocket hub started")

	notifiers := notify.Multi{hub, notify.Log{}}
	var opts []state.ControllerOption
	readyChecks := map[string]handler.CheckFunc{
		"shop_api": func(ctx context.Context) error {
			_, err := api.ListItems(ctx)
			return err
		},
	}

	if cfg.EventsAMQPURL != "" {
		rmqCtx, rmqCancel := context.WithTimeout(ctx, 30*time.Second)
		rmq, err := messaging.NewRabbitMQWithRetry(rmqCtx, cfg.EventsAMQPURL)
		rmqCancel()
		if err != nil {
			slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer rmq.Close()

		publisher := rmq.Publisher()
		notifiers = append(notifiers, publisher)
		opts = append(opts, state.WithCheckoutObserver(publisher))
		readyChecks["events"] = rmq.Ping
		slog.Info("publishing shop events", slog.String("exchange", messaging.ExchangeName))
	}

	tokens := tokenstore.NewFileStore(cfg.TokenFile)
	ctrl := state.NewController(api, tokens, notify.Counted(notifiers), opts...)
	if err := ctrl.Start(ctx); err != nil {
		slog.Warn("continuing without stored session", slog.String("error", err.Error()))
	}

	csrf, err := security.NewTokenManager(cfg.CSRFSecret)
	if err != nil {
		slog.Error("failed to create CSRF token", slog.String("error", err.Error()))
		os.Exit(1)
	}

	r := handler.NewRouter(handler.RouterConfig{
		Controller:     ctrl,
		Hub:            hub,
		CSRF:           csrf,
		AllowedOrigins: middleware.ParseOrigins(cfg.AllowedOrigins),
		ActionLimiter:  middleware.NewRateLimiter(ctx, 5, 10),
		ReadyChecks:    readyChecks,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if !cfg.IsLoopback() {
		slog.Warn("frontend reachable from other hosts; anyone who can load the page acts as the logged-in user",
			slog.String("host", cfg.Host))
	}

	go func() {
		slog.Info("shop web frontend listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()
	hubCancel()

	time.Sleep(100 * time.Millisecond)

	slog.Info("server stopped gracefully")
}

// Package server wires the HTTP router, services and storage together.
//
// COMPOSITION ROOT:
// main.go loads config and opens the store; New builds everything else:
//
//	repository.Store → AuthService → AuthHandler
//	                 ↘ ChatService (+ Generator) → ChatHandler
//	                 ↘ HealthHandler
//
// Each layer receives only the interface it needs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/healthchat/internal/auth"
	"github.com/sakif/healthchat/internal/config"
	"github.com/sakif/healthchat/internal/handler"
	"github.com/sakif/healthchat/internal/metrics"
	"github.com/sakif/healthchat/internal/middleware"
	"github.com/sakif/healthchat/internal/repository"
	"github.com/sakif/healthchat/internal/service"
)

const shutdownTimeout = 30 * time.Second

// sweeper is implemented by stores that can purge expired sessions in the background.
type sweeper interface {
	StartSweeper(interval time.Duration)
}

// Server is the HTTP server and the store it owns.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	store    repository.Store
	registry *prometheus.Registry

	accounts *service.AuthService
}

// New builds the server. gen may be nil, in which case /api/chat answers 503.
// The server takes ownership of store and closes it on shutdown.
func New(cfg *config.Config, store repository.Store, gen service.Generator, logger *slog.Logger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		registry: registry,
	}

	s.accounts = service.NewAuthService(
		store,
		auth.NewPasswordService(cfg.Session.BcryptCost),
		auth.NewSessionPolicy(cfg.Session.Lifetime),
		metrics.NewAuthMetrics(registry),
		logger,
	)

	var asker handler.Asker
	if gen != nil {
		asker = service.NewChatService(gen, store, metrics.NewChatMetrics(registry), logger)
	}

	if sw, ok := store.(sweeper); ok && cfg.Session.SweepInterval > 0 {
		sw.StartSweeper(cfg.Session.SweepInterval)
	}

	s.setupRoutes(asker)
	return s
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	POST /api/auth/signup   public
//	POST /api/auth/login    public
//	POST /api/auth/logout   public (token optional)
//	GET  /api/auth/me       RequireAuth
//	POST /api/chat          OptionalAuth
//	GET  /api/health        public
//	GET  /metrics           prometheus
//
// MIDDLEWARE ORDER:
// RequestID first so the logger can read it, Recoverer last so a panic
// still produces a logged 500.
func (s *Server) setupRoutes(asker handler.Asker) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	authHandler := handler.NewAuthHandler(s.accounts, s.logger)
	chatHandler := handler.NewChatHandler(asker, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.HandleSignup)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(auth.RequireAuth(s.accounts, s.logger)).Get("/me", authHandler.HandleMe)
		})
		r.With(auth.OptionalAuth(s.accounts, s.logger)).Post("/chat", chatHandler.HandleChat)
		r.Get("/health", healthHandler.HandleHealth)
	})

	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store.
func (s *Server) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}

// Start serves HTTP until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests, close the store.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.Inference.Timeout + 15*time.Second, // chat waits on the model server
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("store", s.store.Name()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			runErr = fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		s.logger.Error("closing store failed", slog.String("error", err.Error()))
	}
	s.logger.Info("server stopped")
	return runErr
}

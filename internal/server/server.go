// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
//   - which URL patterns map to which handler functions
//   - what middleware runs on which routes
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlite.DB → services (auth, book, review) → handlers → routes
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/book-catalog/internal/apperror"
	"github.com/sakif/book-catalog/internal/auth"
	"github.com/sakif/book-catalog/internal/config"
	"github.com/sakif/book-catalog/internal/handler"
	"github.com/sakif/book-catalog/internal/middleware"
	sqliteRepo "github.com/sakif/book-catalog/internal/repository/sqlite"
	"github.com/sakif/book-catalog/internal/response"
	"github.com/sakif/book-catalog/internal/service"
	"github.com/sakif/book-catalog/internal/validation"
)

// shutdownTimeout is how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and the rate limiter's janitor
// goroutine. Close releases both; Start calls it on the way out.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter
	metrics *middleware.Metrics
}

// New opens (and migrates) the database, builds every layer and mounts the
// routes. The caller must Close the server if Start is never called.
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		limiter: middleware.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst, middleware.DefaultIdleTTL, logger),
		metrics: middleware.NewMetrics(),
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz               → liveness + database ping
//	GET    /metrics               → Prometheus exposition
//	POST   /signup                → register        (rate limited)
//	POST   /login                 → issue a token   (rate limited)
//	PUT    /changePassword        → reset password  (rate limited)
//	GET    /auth/github/login     → GitHub sign-in  (only when configured)
//	GET    /auth/github/callback  → GitHub sign-in  (only when configured)
//	POST   /books                 → create book     (auth)
//	POST   /bulk-books            → create books    (auth)
//	PUT    /books/{id}            → update book     (auth)
//	GET    /books                 → list books      (auth)
//	GET    /books/{id}            → book + reviews  (auth)
//	POST   /books/{id}/review     → create review   (auth)
//	PUT    /reviews/{id}          → update review   (auth)
//	DELETE /reviews/{id}          → delete review   (auth)
//	GET    /search                → search books    (auth)
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
//  1. RequestID: assigns a unique ID to each request (for tracing)
//  2. RealIP: extracts the real client IP from proxy headers
//  3. Logger: logs each request with timing info
//  4. Recoverer: catches panics and answers a JSON 500 instead of crashing
//  5. Metrics: counts and times the request by route pattern
//  6. CORS: answers preflight requests and sets the allow headers
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Recoverer(s.logger))
	s.router.Use(s.metrics.Instrument)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{chimiddleware.RequestIDHeader},
		MaxAge:         300,
	}))

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, apperror.NotFoundMessage("Route not found"))
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	// === Services ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordService(s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password service: %w", err)
	}

	// s.db implements all three repository interfaces.
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	bookService := service.NewBookService(s.db, s.logger)
	reviewService := service.NewReviewService(s.db, s.db, s.logger)

	// === Handlers ===
	v := validation.New()

	var github handler.GitHubAuthenticator
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}

	authHandler := handler.NewAuthHandler(authService, github, v, s.logger)
	bookHandler := handler.NewBookHandler(bookService, v, s.logger)
	reviewHandler := handler.NewReviewHandler(reviewService, v, s.logger)

	// === Operational routes ===
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// === Credential routes (public, throttled per IP) ===
	s.router.Group(func(r chi.Router) {
		r.Use(s.limiter.Handler)

		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Put("/changePassword", authHandler.HandleChangePassword)

		if github != nil {
			r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	// === Catalog routes (bearer token required) ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(authService))

		r.Post("/books", bookHandler.HandleCreate)
		r.Post("/bulk-books", bookHandler.HandleCreateBulk)
		r.Put("/books/{id}", bookHandler.HandleUpdate)
		r.Get("/books", bookHandler.HandleList)
		r.Get("/search", bookHandler.HandleSearch)

		r.Get("/books/{id}", reviewHandler.HandleGetBook)
		r.Post("/books/{id}/review", reviewHandler.HandleCreate)
		r.Put("/reviews/{id}", reviewHandler.HandleUpdate)
		r.Delete("/reviews/{id}", reviewHandler.HandleDelete)
	})

	s.logger.Debug("routes mounted", slog.Bool("github", github != nil))
	return nil
}

// handleHealth answers 200 while the database responds and 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		response.JSON(w, http.StatusServiceUnavailable, "DATABASE UNAVAILABLE", map[string]string{"database": "down"})
		return
	}
	response.OK(w, "OK", map[string]string{"database": "up"})
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Stop the rate limiter janitor and close the database
//
// The `defer s.Close()` ensures step 3 happens on every exit path.
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("database", s.config.DBPath),
			slog.String("env", s.config.Env),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}

// Close stops the rate limiter and closes the database.
func (s *Server) Close() error {
	s.limiter.Stop()
	return s.db.Close()
}

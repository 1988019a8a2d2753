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
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardpass/pass-issuer/internal/config"
	"github.com/cardpass/pass-issuer/internal/issuance"
	"github.com/cardpass/pass-issuer/internal/ratelimit"
	"github.com/cardpass/pass-issuer/internal/records"
	"github.com/cardpass/pass-issuer/internal/server/handlers"
	"github.com/cardpass/pass-issuer/internal/server/middleware"
)

// ServiceName is reported by the version endpoint.
const ServiceName = "pass-server"

type Server struct {
	pool   *pgxpool.Pool
	config *config.ServerEnvironment
	logger *slog.Logger
	router *chi.Mux

	issuer       *issuance.Service
	rateStore    ratelimit.Store
	recordsStore records.Store
}

// NewServer loads the signing identity, template and assets, and wires the issuance service.
//
// pool may be nil, in which case pass records are kept in memory.
// Background goroutines started here (JWKS refresh, rate limit cleanup) stop when ctx is cancelled.
func NewServer(
	ctx context.Context,
	pool *pgxpool.Pool,
	cfg *config.ServerEnvironment,
	logger *slog.Logger,
) (*Server, error) {
	server := &Server{
		pool:   pool,
		config: cfg,
		logger: logger,
		router: chi.NewRouter(),
	}

	if err := server.initIssuance(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize issuance service: %w", err)
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.RequestLogging(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.SecurityHeaders(s.config.Environment))
	s.router.Use(chimiddleware.Timeout(s.config.IssueTimeout + 5*time.Second))
}

func (s *Server) registerRoutes() {
	s.router.Get("/health/live", handlers.HandleHealth)
	s.router.Get("/health/ready", handlers.HandleReadiness(map[string]handlers.ReadinessCheck{
		"issuance": s.issuer.Ready,
	}))
	s.router.Get("/version", handlers.HandleVersion(ServiceName))

	s.router.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
		r.Use(middleware.RequestSizeLimit(s.config.MaxRequestSize))
		r.Post("/passes", handlers.HandleIssuePass(s.issuer))
	})
}

// Handler returns the root http handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr))

		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// Shutdown releases the rate limit store and the database pool.
func (s *Server) Shutdown() {
	s.closeRateStore()
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("database connection closed")
	}
}

func (s *Server) closeRateStore() {
	if s.rateStore == nil {
		return
	}
	if err := s.rateStore.Close(); err != nil {
		s.logger.Warn("rate limit store close error", slog.String("error", err.Error()))
	}
	s.rateStore = nil
}

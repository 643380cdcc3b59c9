// Package server wires the HTTP routes and runs the API server with
// graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cloudstore/internal/api/handlers"
	"cloudstore/internal/api/middleware"
	"cloudstore/internal/app"
	"cloudstore/internal/config"
)

// NewFromApp assembles the handlers, authentication and router for a and
// returns a server ready to Run.
func NewFromApp(cfg *config.Config, a *app.App) (*Server, error) {
	logger := a.Logger()
	auth, err := middleware.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer, logger)
	if err != nil {
		return nil, fmt.Errorf("configuring authentication: %w", err)
	}
	files := handlers.NewFilesHandler(a, cfg.Server.MaxUploadSize, logger)
	health := handlers.NewHealthHandler(a, logger)
	return New(cfg.Server, NewRouter(files, health, auth, logger), logger), nil
}

// NewRouter builds the route table. Everything under /files needs a bearer
// token except public link downloads.
func NewRouter(files *handlers.FilesHandler, health *handlers.HealthHandler, auth *middleware.JWTAuth, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics())

	r.Get("/health/live", health.Live)
	r.Get("/health/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/files/public/{token}", files.Public)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())

		r.Get("/files/", files.List)
		r.Get("/files/list", files.Children)
		r.Get("/files/stats", files.Stats)
		r.Get("/files/history", files.History)
		r.Post("/files/upload", files.Upload)
		r.Post("/files/import", files.Import)
		r.Post("/files/directories", files.MakeDirectory)
		r.Get("/files/info/*", files.Info)
		r.Get("/files/download/*", files.Download)
		r.Post("/files/public-link/*", files.IssueLink)
		r.Delete("/files/public-link/*", files.RevokeLink)
		r.Put("/files/*", files.Rename)
		r.Delete("/files/*", files.Delete)
	})

	return r
}

// Server is the API HTTP server.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// defaultShutdownTimeout applies when the configuration sets none.
const defaultShutdownTimeout = 10 * time.Second

// New creates the server for the given router.
func New(cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) *Server {
	shutdownTimeout := cfg.ShutdownTimeout.Std()
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout.Std(),
			WriteTimeout: cfg.WriteTimeout.Std(),
			IdleTimeout:  cfg.IdleTimeout.Std(),
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down,
// waiting at most the shutdown timeout for in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", slog.String("addr", ln.Addr().String()))
		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down http server")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

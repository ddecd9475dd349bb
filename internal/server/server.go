package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"ahagon/internal/config"
	"ahagon/internal/handler"
	"ahagon/internal/history"
	"ahagon/internal/notifier"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout = 10 * time.Second
	HTTPIdleTimeout = 60 * time.Second

	// ShutdownTimeout bounds graceful shutdown after the context is cancelled
	ShutdownTimeout = 15 * time.Second
)

// Recorder persists pipeline outcomes. *history.History implements it.
type Recorder interface {
	Record(ctx context.Context, record *history.DeliveryRecord) (int64, error)
}

// Server represents the HTTP server
type Server struct {
	Config   *config.Config
	Repos    *config.Registry
	Handlers *handler.Registry
	Recorder Recorder // nil disables history
	Logger   *slog.Logger

	github *notifier.GitHub
	travis *notifier.Travis
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, repos *config.Registry, handlers *handler.Registry, recorder Recorder, logger *slog.Logger) *Server {
	return &Server{
		Config:   cfg,
		Repos:    repos,
		Handlers: handlers,
		Recorder: recorder,
		Logger:   logger,
		github:   notifier.NewGitHub(repos),
		travis:   notifier.NewTravis(repos),
	}
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.Config.Web.Timeout()))

	// Logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()))
			}()

			next.ServeHTTP(ww, r)
		})
	})

	if s.Config.Web.RateLimit > 0 {
		r.Use(NewRateLimitMiddleware(s.Config.Web.RateLimit, s.Logger))
	}

	r.Use(BodyLimit(s.Config.Web.MaxBodyBytes(), s.Logger))

	r.NotFound(s.HandleNotFound)
	r.MethodNotAllowed(s.HandleNotFound)

	// Routes
	r.Get("/", s.HandleIndex)
	r.Get("/index.html", s.HandleIndex)
	r.Get("/favicon.ico", s.HandleFavicon)
	r.Get("/health", s.HandleHealth)
	r.Post("/github", s.HandleGitHub)
	r.Post("/travis", s.HandleTravis)

	return r
}

// Start binds the configured address and serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := s.Config.Addr()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.Logger.Error("Failed to bind", "addr", addr, "error", err)
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully and
// waits for in-flight actions.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.Logger.Info("Starting server", "addr", ln.Addr().String(), "repos", s.Repos.Count())

	server := &http.Server{
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: s.Config.Web.Timeout() + 5*time.Second,
		IdleTimeout:  HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.Logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)

	// Wait for in-flight actions
	s.Handlers.Wait()

	if err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

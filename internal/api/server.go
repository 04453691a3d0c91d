// Package api serves the build output over HTTP: the support matrix,
// rendered pages, tutorials, examples and the build history.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/langdocs/internal/history"
	"git.home.luguber.info/inful/langdocs/internal/logfields"
	"git.home.luguber.info/inful/langdocs/pkg/foundation"
	"git.home.luguber.info/inful/langdocs/pkg/langdocs"
)

// RunStore is the read side of the build history.
type RunStore interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
	Get(ctx context.Context, id string) (foundation.Option[history.Run], error)
}

// Server represents the API server.
type Server struct {
	Addr     string
	router   *chi.Mux
	server   *http.Server
	resolver *langdocs.Resolver
	runs     RunStore
	metrics  http.Handler
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRuns exposes the build history under /runs.
func WithRuns(store RunStore) Option {
	return func(s *Server) { s.runs = store }
}

// WithMetrics serves h under /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server answering from resolver.
func NewServer(addr string, resolver *langdocs.Resolver, opts ...Option) *Server {
	s := &Server{
		Addr:     addr,
		router:   chi.NewRouter(),
		resolver: resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}

	s.router.Get("/supported", s.handleSupported)
	s.router.Get("/languages", s.handleLanguages)
	s.router.Get("/resolve", s.handleResolve)

	s.router.Get("/docs/{lang}/guides", s.handleGuides)
	s.router.Get("/docs/{lang}/*", s.handleDoc)
	s.router.Get("/guides/{lang}", s.handleGuides)
	s.router.Get("/tutorials/{lang}", s.handleTutorialDirectory)
	s.router.Get("/tutorials/{lang}/{lesson}", s.handleTutorial)
	s.router.Get("/examples/{lang}", s.handleExamplesDirectory)
	s.router.Get("/examples/{lang}/{id}", s.handleExample)

	if s.runs != nil {
		s.router.Get("/runs", s.handleListRuns)
		s.router.Get("/runs/{id}", s.handleGetRun)
	}
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the API server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run serves until ctx is done, then shuts down with a grace period.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", logfields.Addr(s.Addr))
		errCh <- s.Start()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// Response represents a standard API response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Error writes an error response.
func (s *Server) Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", logfields.Path(r.URL.Path), logfields.Status(code), slog.String("message", message))
	}
	writeJSON(w, code, Response{Success: false, Error: message})
}

// Success writes a success response.
func (s *Server) Success(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, Response{Success: true, Data: data})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// Package server implements the circlepack HTTP service.
//
// Routes:
//
//	GET  /healthz   liveness and build version
//	POST /v1/pack   run a packing and return one rendered format
//	GET  /metrics   Prometheus metrics (when enabled)
//
// All requests share one pipeline.Runner, so seeded packings are cached
// across clients.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/circlepack/pkg/pipeline"
)

// Defaults for request limits.
const (
	DefaultMaxBody     = 32 << 20
	DefaultMaxAttempts = 10_000_000
	DefaultTimeout     = 2 * time.Minute
)

// Server serves packing requests.
type Server struct {
	runner      *pipeline.Runner
	logger      *log.Logger
	metrics     http.Handler
	maxBody     int64
	maxAttempts int
	timeout     time.Duration
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// WithMaxBody limits request bodies to n bytes.
func WithMaxBody(n int64) Option { return func(s *Server) { s.maxBody = n } }

// WithMaxAttempts limits the total attempts a single request may schedule.
func WithMaxAttempts(n int) Option { return func(s *Server) { s.maxAttempts = n } }

// WithTimeout bounds the time spent on one request.
func WithTimeout(d time.Duration) Option { return func(s *Server) { s.timeout = d } }

// New creates a server backed by runner.
func New(runner *pipeline.Runner, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner:      runner,
		logger:      logger,
		maxBody:     DefaultMaxBody,
		maxAttempts: DefaultMaxAttempts,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.With(middleware.Timeout(s.timeout)).Post("/v1/pack", s.handlePack)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// ListenAndServe serves on addr until ctx is done, then drains open
// connections for up to 30 seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.timeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

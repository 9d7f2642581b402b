package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxmeet/voxmeet/internal/health"
	"github.com/voxmeet/voxmeet/internal/observe"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Server is the HTTP front of the service: the lifecycle API plus the
// operational endpoints (health, readiness, metrics).
type Server struct {
	srv *http.Server
	log *slog.Logger
}

// Config holds the dependencies of a [Server].
type Config struct {
	ListenAddr string
	Router     *Router
	Checkers   []health.Checker

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Logger defaults to [slog.Default].
	Logger *slog.Logger
}

// New assembles the HTTP server: operational endpoints are registered
// directly, everything else flows through the router wrapped in the
// observability middleware.
func New(cfg Config) *Server {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	hh := health.New(cfg.Checkers...)

	mux := http.NewServeMux()
	hh.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", observe.Middleware(metrics)(cfg.Router))

	return &Server{
		srv: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// ListenAndServe runs the server until Shutdown or a listener error.
// http.ErrServerClosed is swallowed; it is the expected shutdown result.
func (s *Server) ListenAndServe() error {
	s.log.Info("http server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests, bounded by shutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Handler exposes the assembled mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Package httpserver wires the admin HTTP endpoints and manages the server lifecycle.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/logfields"
	"git.home.luguber.info/inful/apierror/internal/retry"
	"git.home.luguber.info/inful/apierror/internal/server/handlers"
	smw "git.home.luguber.info/inful/apierror/internal/server/middleware"
)

// Options configures the admin server.
type Options struct {
	Addr    string
	Policy  retry.Policy
	Metrics http.Handler // served on /metrics when set
	Logger  *slog.Logger
	Clock   clockwork.Clock
}

// Server exposes the engine over HTTP.
type Server struct {
	opts    Options
	handler http.Handler

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

// New builds the route table for engine.
func New(engine handlers.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	adapter := ferrors.NewHTTPErrorAdapter(opts.Logger).WithClock(opts.Clock)
	failures := handlers.NewFailureHandlers(engine, opts.Policy, adapter)
	stats := handlers.NewStatsHandlers(engine, opts.Clock, adapter)
	monitoring := handlers.NewMonitoringHandlers(opts.Clock, adapter)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /failures", failures.HandleIngest)
	mux.HandleFunc("GET /stats", stats.HandleStats)
	mux.HandleFunc("DELETE /stats", stats.HandleClearStats)
	mux.HandleFunc("GET /config", stats.HandleConfig)
	mux.HandleFunc("GET /healthz", monitoring.HandleHealthCheck)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	return &Server{
		opts:    opts,
		handler: smw.Chain(opts.Logger, adapter)(mux),
	}
}

// Handler returns the routed handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listen address and serves in the background. Binding errors
// are returned directly so startup fails fast.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return ferrors.RuntimeError("admin server already started").Build()
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to bind admin server").
			WithContext("addr", s.opts.Addr).
			Fatal().
			Build()
	}

	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	srv, logger := s.srv, s.opts.Logger
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Admin server error", logfields.Error(err))
		}
	}()

	logger.Info("Admin server started", logfields.Addr(ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "admin server shutdown failed").Build()
	}
	s.opts.Logger.Info("Admin server stopped")
	return nil
}

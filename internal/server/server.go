// Package server is the HTTP transport for the regulator. It only marshals
// values into and out of the core's two operations, maps validation failures
// to 400-class responses, and owns every service-level concern the core
// excludes: request IDs, rate limiting, concurrency bounds, the audit log,
// and the should_summarize flag.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/loopkit/addm/internal/config"
	"github.com/loopkit/addm/internal/history"
	"github.com/loopkit/addm/internal/regulator"
)

// Version is the service version reported by status endpoints.
const Version = "1.0.0"

const serviceName = "addm-regulator"

// Server wires the regulator to HTTP.
type Server struct {
	cfg     config.Config
	reg     *regulator.Regulator
	logger  *slog.Logger
	store   *history.Store // nil when history is disabled
	limiter *rate.Limiter  // nil when rate limiting is disabled
	sem     *semaphore.Weighted
	started time.Time
}

// Option configures the Server during construction.
type Option func(*Server)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithHistory attaches a decision audit log.
func WithHistory(store *history.Store) Option {
	return func(s *Server) { s.store = store }
}

// New creates a Server for the given regulator.
func New(cfg config.Config, reg *regulator.Regulator, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		reg:     reg,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	if cfg.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	return s
}

// Handler returns the full route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("POST /api/v1/decide", s.limited(s.handleDecide))
	mux.HandleFunc("POST /api/v1/simulate", s.limited(s.handleSimulate))
	mux.HandleFunc("GET /api/v1/history", s.handleHistory)
	return s.withRequestID(s.withLogging(mux))
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", "addr", s.cfg.Addr, "environment", s.cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// limited applies the rate limit and the concurrency bound to a handler.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "RateLimited", "request rate limit exceeded")
			return
		}
		if s.sem != nil {
			if err := s.sem.Acquire(r.Context(), 1); err != nil {
				writeError(w, http.StatusServiceUnavailable, "Unavailable", "server is shutting down")
				return
			}
			defer s.sem.Release(1)
		}
		next(w, r)
	}
}

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/engine"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/logging"
)

const (
	defaultLiveAttacks = 20
	maxLiveAttacks     = 50
	shutdownTimeout    = 15 * time.Second
)

// HoneypotServer exposes the trap and the operator API on one listener.
type HoneypotServer struct {
	engine *engine.Engine
	router chi.Router

	enableCORS     bool
	metricsPath    string
	metricsHandler http.Handler
	now            func() time.Time
}

type ServerOption func(*HoneypotServer)

// WithCORS adds permissive CORS headers to /api responses.
func WithCORS(enabled bool) ServerOption {
	return func(s *HoneypotServer) { s.enableCORS = enabled }
}

// WithMetricsHandler mounts h (usually the Prometheus handler) at path.
func WithMetricsHandler(path string, h http.Handler) ServerOption {
	return func(s *HoneypotServer) {
		if path == "" {
			path = "/metrics"
		}
		s.metricsPath = path
		s.metricsHandler = h
	}
}

func WithServerClock(now func() time.Time) ServerOption {
	return func(s *HoneypotServer) { s.now = now }
}

func NewHoneypotServer(e *engine.Engine, opts ...ServerOption) *HoneypotServer {
	s := &HoneypotServer{
		engine: e,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *HoneypotServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		if s.enableCORS {
			api.Use(s.corsMiddleware)
		}
		api.Get("/metrics", s.handleMetrics)
		api.Get("/live_attacks", s.handleLiveAttacks)
		api.Get("/health", s.handleHealth)
		api.Post("/learning/reset", s.handleResetLearning)
		api.NotFound(s.handleAPINotFound)
		api.MethodNotAllowed(s.handleAPINotFound)
	})

	if s.metricsHandler != nil {
		r.Method(http.MethodGet, s.metricsPath, s.metricsHandler)
	}

	r.HandleFunc("/*", s.handleTrap)
	r.NotFound(s.handleTrap)
	r.MethodNotAllowed(s.handleTrap)
	return r
}

// Handler returns the routed handler, mainly for tests and embedding.
func (s *HoneypotServer) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *HoneypotServer) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("[API] Honeypot listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logging.Info("[API] Shutting down honeypot listener")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *HoneypotServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Package server provides the HTTP API for vedika.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/vedika/internal/chart"
	"github.com/hyperjump/vedika/internal/config"
	"github.com/hyperjump/vedika/internal/ephemeris"
	"github.com/hyperjump/vedika/internal/metrics"
	"github.com/hyperjump/vedika/internal/profiles"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Server is the HTTP server for the vedika API.
type Server struct {
	calc     *chart.Calculator
	profiles *profiles.Service
	config   *config.Config
	defaults atomic.Pointer[config.ChartDefaults]
	metrics  *metrics.Collector         // optional
	cache    func() ephemeris.CacheStats // optional
	breaker  func() string               // optional
	logger   *zap.Logger
	server   *http.Server
	started  time.Time
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithEphemerisStatus reports cache and breaker state on /api/v1/status. Either may be nil.
func WithEphemerisStatus(cache func() ephemeris.CacheStats, breaker func() string) Option {
	return func(s *Server) {
		s.cache = cache
		s.breaker = breaker
	}
}

// NewServer creates a server with the given dependencies. The chart defaults are
// resolved from cfg now, so a bad configuration fails here rather than per request.
func NewServer(calc *chart.Calculator, svc *profiles.Service, cfg *config.Config, opts ...Option) (*Server, error) {
	d, err := cfg.ChartDefaults()
	if err != nil {
		return nil, err
	}
	s := &Server{
		calc:     calc,
		profiles: svc,
		config:   cfg,
		logger:   zap.NewNop(),
		started:  time.Now(),
		now:      time.Now,
	}
	s.defaults.Store(&d)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetChartDefaults replaces the defaults used by subsequent requests.
func (s *Server) SetChartDefaults(d config.ChartDefaults) {
	s.defaults.Store(&d)
	s.logger.Info("chart defaults updated",
		zap.String("ayanamsha", d.Ayanamsha.String()),
		zap.String("house_system", d.HouseSystem.String()),
		zap.Ints("divisional_factors", d.Settings.Factors))
}

func (s *Server) chartDefaults() config.ChartDefaults {
	return *s.defaults.Load()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Get("/status", s.handleStatus)

		r.Post("/charts", s.handleChart)
		r.Post("/charts/batch", s.handleChartBatch)
		r.Post("/dasha", s.handleDasha)
		r.Get("/dasha/current", s.handleDashaCurrent)
		r.Get("/ayanamsha/{model}", s.handleAyanamsha)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", s.handleListProfiles)
			r.Post("/", s.handleCreateProfile)
			r.Get("/search", s.handleSearchProfiles)
			r.Get("/{id}", s.handleGetProfile)
			r.Put("/{id}", s.handleUpdateProfile)
			r.Delete("/{id}", s.handleDeleteProfile)
			r.Get("/{id}/chart", s.handleProfileChart)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

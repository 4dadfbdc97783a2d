// Package metrics exposes Prometheus metrics for chart computation, the ephemeris adapter and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyperjump/vedika/internal/ephemeris"
	"github.com/hyperjump/vedika/internal/errs"
)

// Collector holds all Prometheus metrics for one process. Each collector has its own registry.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Chart metrics
	Charts        *prometheus.CounterVec
	ChartDuration prometheus.Histogram

	namespace string
}

// NewCollector creates a collector whose metric names are prefixed with namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	charts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_total",
			Help:      "Total number of chart computations by outcome",
		},
		[]string{"outcome"},
	)

	chartDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chart_duration_seconds",
			Help:      "Chart computation duration in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	registry.MustRegister(httpRequests, httpDuration, charts, chartDuration)

	return &Collector{
		registry:      registry,
		HTTPRequests:  httpRequests,
		HTTPDuration:  httpDuration,
		Charts:        charts,
		ChartDuration: chartDuration,
		namespace:     namespace,
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveChart records one chart computation. Failures are labelled with their error kind.
func (c *Collector) ObserveChart(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(errs.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	c.Charts.WithLabelValues(outcome).Inc()
	c.ChartDuration.Observe(d.Seconds())
}

// RegisterCache exposes ephemeris cache statistics, read at scrape time.
func (c *Collector) RegisterCache(stats func() ephemeris.CacheStats) {
	c.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "ephemeris_cache_hits_total",
			Help:      "Total number of ephemeris cache hits",
		}, func() float64 { return float64(stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "ephemeris_cache_misses_total",
			Help:      "Total number of ephemeris cache misses",
		}, func() float64 { return float64(stats().Misses) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      "ephemeris_cache_entries",
			Help:      "Number of cached ephemeris lookups",
		}, func() float64 { return float64(stats().Entries) }),
	)
}

// RegisterBreaker exposes the ephemeris circuit breaker state: 0 closed, 1 half-open, 2 open.
func (c *Collector) RegisterBreaker(state func() string) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Name:      "ephemeris_breaker_state",
		Help:      "Ephemeris circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, func() float64 { return breakerValue(state()) }))
}

func breakerValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// Middleware records request counts and latencies labelled by chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

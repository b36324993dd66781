package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// VotesTotal counts vote outcomes by item kind, vote type and action (cast, switched, removed).
	VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medcircle_votes_total",
			Help: "Votes processed, by item kind, vote type and action.",
		},
		[]string{"kind", "type", "action"},
	)

	// ViewsTotal counts recorded views by item kind.
	ViewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medcircle_views_total",
			Help: "Item views recorded, by item kind.",
		},
		[]string{"kind"},
	)

	// ViewFailures counts background view recordings that failed.
	ViewFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medcircle_view_failures_total",
			Help: "View recordings that failed and were dropped.",
		},
	)

	// CommentsTotal counts comment mutations by action.
	CommentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medcircle_comments_total",
			Help: "Comment mutations, by action.",
		},
		[]string{"action"},
	)

	// TrustedTransitions counts trusted-user workflow transitions by target state.
	TrustedTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medcircle_trusted_transitions_total",
			Help: "Trusted-user application transitions, by resulting state.",
		},
		[]string{"to"},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medcircle_cache_hits_total",
			Help: "Total Redis cache hits.",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medcircle_cache_misses_total",
			Help: "Total Redis cache misses.",
		},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medcircle_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route, method and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "medcircle_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	// StreamSubscribers tracks open live-update streams.
	StreamSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "medcircle_stream_subscribers",
			Help: "Number of open live-update streams.",
		},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default Prometheus registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			VotesTotal,
			ViewsTotal,
			ViewFailures,
			CommentsTotal,
			TrustedTransitions,
			CacheHits,
			CacheMisses,
			RequestDuration,
			RequestsInFlight,
			StreamSubscribers,
		)
	})
}

// Middleware records request duration and in-flight count.
// Routes are labelled by their template to keep cardinality bounded.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}

			RequestsInFlight.Inc()
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			RequestDuration.WithLabelValues(c.Path(), c.Request().Method, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			RequestsInFlight.Dec()

			return err
		}
	}
}

// Handler serves the Prometheus /metrics endpoint.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ProfileResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_resolutions_total",
			Help: "Profile resolutions by outcome (resolved, synthesized, failed).",
		},
		[]string{"outcome"},
	)

	StaleProfileFetches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "profile_fetches_discarded_total",
		Help: "Profile fetch results dropped because the session changed meanwhile.",
	})

	NotificationsClassified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notifications produced by the visitor event classifier, by type.",
		},
		[]string{"type"},
	)

	GuardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_guard_decisions_total",
			Help: "Route guard outcomes.",
		},
		[]string{"decision"},
	)

	ActiveDashboards = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashboards_active",
		Help: "Open per-session dashboards.",
	})

	SecurityEscalations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_escalations_total",
			Help: "Blacklisted-visitor alerts handed to the task queue, by result.",
		},
		[]string{"result"},
	)
)

var initOnce sync.Once

// Init registers the collectors in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			ProfileResolutions, StaleProfileFetches, NotificationsClassified,
			GuardDecisions, ActiveDashboards, SecurityEscalations,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request count, latency and in-flight gauge. The path label
// is the matched route template so ids do not explode cardinality.
func Instrument() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			httpInFlight.Inc()
			defer httpInFlight.Dec()
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			labels := []string{c.Request().Method, path, strconv.Itoa(status)}
			httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(labels...).Inc()
			return err
		}
	}
}

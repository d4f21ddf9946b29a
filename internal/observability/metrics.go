package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcomes
const (
	OutcomeGranted    = "granted"
	OutcomeWildcard   = "wildcard"
	OutcomeFailClosed = "fail_closed"
	OutcomeCacheHit   = "cache_hit"
)

var (
	PermissionResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_permission_resolutions_total",
		Help: "Effective-permission resolutions by outcome",
	}, []string{"outcome"})

	GuardDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_guard_decisions_total",
		Help: "Route guard decisions",
	}, []string{"decision"})

	ActivityEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_activity_entries_total",
		Help: "Activity log entries by result (written, dropped, failed)",
	}, []string{"result"})

	CacheInvalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_permission_cache_invalidations_total",
		Help: "Permission cache invalidations by scope and origin",
	}, []string{"scope", "origin"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func init() {
	prometheus.MustRegister(
		PermissionResolutions, GuardDecisions,
		ActivityEntries, CacheInvalidations,
		HTTPRequests, HTTPDuration,
	)
}

// MetricsHandler serves the default registry
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// HTTPMetrics records request counts and latency labelled by chi route
// pattern. The wrapped writer keeps http.Flusher for the activity stream.
func HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

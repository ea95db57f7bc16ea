// Package metrics provides Prometheus metrics for the dashboard server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Auth metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_auth_attempts_total",
			Help: "Total login attempts",
		},
		[]string{"result"},
	)

	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_sessions_active",
			Help: "Number of live sessions",
		},
	)

	// Filesystem access metrics
	traversalRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_traversal_rejections_total",
			Help: "Requests rejected because the path escaped the project root",
		},
	)

	fileReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_file_reads_total",
			Help: "File read requests by outcome",
		},
		[]string{"result"},
	)

	fileBytesServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_file_bytes_served_total",
			Help: "Total bytes of file content served",
		},
	)

	directoryListingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_directory_listings_total",
			Help: "Total directory listings served",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAuthAttempt records a login attempt.
func RecordAuthAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// SetSessionsActive sets the number of live sessions.
func SetSessionsActive(count int) {
	sessionsActive.Set(float64(count))
}

// RecordTraversalRejection records a path that escaped its project root.
func RecordTraversalRejection() {
	traversalRejectionsTotal.Inc()
}

// RecordFileRead records a file read outcome ("ok", "too_large", "binary", "error").
func RecordFileRead(result string, bytes int64) {
	fileReadsTotal.WithLabelValues(result).Inc()
	if bytes > 0 {
		fileBytesServed.Add(float64(bytes))
	}
}

// RecordDirectoryListing records a served directory listing.
func RecordDirectoryListing() {
	directoryListingsTotal.Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics. The route
// label is the matched ServeMux pattern so raw paths never become labels.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
	})
}

// Package metrics provides Prometheus instrumentation for the swap engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SwapTransitions counts lifecycle transitions by target status.
	SwapTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swaptoon_swap_transitions_total",
		Help: "Swap lifecycle transitions",
	}, []string{"status"})

	// SwapDuration tracks submission-to-outcome time of finished swaps.
	SwapDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swaptoon_swap_duration_seconds",
		Help:    "Time from submission to SUCCESS or FAILED",
		Buckets: []float64{0.5, 1, 2, 3, 3.5, 4, 5, 10},
	}, []string{"status"})

	// SwapVolumeUSD tracks the cumulative USD value swapped per source asset.
	SwapVolumeUSD = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swaptoon_swap_volume_usd_total",
		Help: "Cumulative USD value of completed swaps",
	}, []string{"source", "target"})

	// ActiveSessions tracks open swap sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swaptoon_active_sessions",
		Help: "Number of open swap sessions",
	})

	// PoolJoins counts pool joins by pool ID and outcome.
	PoolJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swaptoon_pool_joins_total",
		Help: "Liquidity pool join attempts",
	}, []string{"pool_id", "outcome"})

	// InsightRequests counts insight lookups by outcome
	// (ok, no_key, error, cached).
	InsightRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swaptoon_insight_requests_total",
		Help: "Insight provider lookups",
	}, []string{"outcome"})

	// EventPublishFailures counts trade events that could not be published.
	EventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swaptoon_event_publish_failures_total",
		Help: "Trade events dropped by a publisher",
	}, []string{"sink"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swaptoon_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swaptoon_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swaptoon_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern labels by chi route pattern ("/api/v1/sessions/{userID}")
// so user IDs do not explode label cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

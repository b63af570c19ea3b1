// Package metrics provides Prometheus instrumentation for the simulation bot.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PositionsOpened counts simulated positions opened, partitioned by symbol and side.
	PositionsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simbot_positions_opened_total",
		Help: "Total simulated positions opened",
	}, []string{"symbol", "side"})

	// PositionsClosed counts simulated positions closed, partitioned by symbol and outcome.
	PositionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simbot_positions_closed_total",
		Help: "Total simulated positions closed",
	}, []string{"symbol", "result"})

	// RealizedPnL tracks cumulative realized PnL across all closed positions.
	RealizedPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "simbot_realized_pnl",
		Help: "Cumulative realized PnL of closed simulated positions",
	})

	// ConfidenceLevel tracks the current confidence level.
	ConfidenceLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "simbot_confidence_level",
		Help: "Current confidence level (0-0.95)",
	})

	// LearningProgress tracks the derived learning-progress score.
	LearningProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "simbot_learning_progress",
		Help: "Learning progress score (0-100)",
	})

	// OpenPositions tracks the number of currently open simulated positions.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "simbot_open_positions",
		Help: "Number of currently open simulated positions",
	})

	// ScamFlags counts symbols suppressed by the scam filter.
	ScamFlags = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simbot_scam_flags_total",
		Help: "Symbols flagged by the scam screening stub",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "simbot_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simbot_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simbot_http_request_duration_seconds",
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

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
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

// Hijack passes through to the underlying writer so WebSocket upgrades work
// behind the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	return hj.Hijack()
}

// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mathsquiz",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mathsquiz",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	TopicCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mathsquiz",
		Name:      "topic_cache_lookups_total",
		Help:      "Topic list cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	TopicSeeds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mathsquiz",
		Name:      "topic_seed_inserts_total",
		Help:      "Topics inserted by first-access seeding.",
	})

	TopicWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mathsquiz",
		Name:      "topic_writes_total",
		Help:      "Successful topic writes by operation.",
	}, []string{"op"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mathsquiz",
		Name:      "ws_connections",
		Help:      "Open topic feed WebSocket connections.",
	})
)

// ObserveHTTP records one finished request.
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// StatusRecorder captures the status code written by a handler.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (r *StatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *StatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes through to the wrapped writer so WebSocket upgrades work behind the middleware.
func (r *StatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.Status = http.StatusSwitchingProtocols
	return h.Hijack()
}

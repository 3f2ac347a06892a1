package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emberctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "emberctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emberctl",
			Subsystem: "glow",
			Name:      "messages_total",
			Help:      "Glow messages by direction and outcome.",
		},
		[]string{"node", "direction", "outcome"},
	)
	messageBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "emberctl",
			Subsystem: "glow",
			Name:      "message_bytes",
			Help:      "Size of Glow payloads in bytes.",
			Buckets:   prometheus.ExponentialBuckets(32, 4, 8),
		},
		[]string{"node", "direction"},
	)
	connections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emberctl",
			Subsystem: "matrix",
			Name:      "connections_total",
			Help:      "Applied matrix connection records by disposition.",
		},
		[]string{"node", "matrix", "disposition"},
	)
	sessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "emberctl",
			Subsystem: "session",
			Name:      "active",
			Help:      "Open Ember+ sessions.",
		},
		[]string{"node"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, messages, messageBytes, connections, sessions)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordMessage counts one payload; direction is "in" or "out".
func RecordMessage(node, direction string, size int, err error) {
	RegisterMetrics()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	messages.WithLabelValues(node, direction, outcome).Inc()
	messageBytes.WithLabelValues(node, direction).Observe(float64(size))
}

func RecordConnection(node, matrix, disposition string) {
	RegisterMetrics()
	connections.WithLabelValues(node, matrix, disposition).Inc()
}

func SessionOpened(node string) {
	RegisterMetrics()
	sessions.WithLabelValues(node).Inc()
}

func SessionClosed(node string) {
	RegisterMetrics()
	sessions.WithLabelValues(node).Dec()
}

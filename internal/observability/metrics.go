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
			Namespace: "ctrldash",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status API requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ctrldash",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	ingestRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ctrldash",
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Telemetry records applied to state.",
		},
		[]string{"schema"},
	)
	ingestDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ctrldash",
			Subsystem: "ingest",
			Name:      "dropped_total",
			Help:      "Telemetry segments dropped without reaching state.",
		},
		[]string{"reason"},
	)
	listenerConnections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ctrldash",
			Subsystem: "listener",
			Name:      "connections_total",
			Help:      "Accepted telemetry client connections.",
		},
	)
	listenerConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ctrldash",
			Subsystem: "listener",
			Name:      "connected",
			Help:      "1 while a telemetry client is connected.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			ingestRecords,
			ingestDropped,
			listenerConnections,
			listenerConnected,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordIngest(schema string) {
	RegisterMetrics()
	ingestRecords.WithLabelValues(schema).Inc()
}

func RecordDrop(reason string) {
	RegisterMetrics()
	ingestDropped.WithLabelValues(reason).Inc()
}

func RecordConnectionOpened() {
	RegisterMetrics()
	listenerConnections.Inc()
	listenerConnected.Set(1)
}

func RecordConnectionClosed() {
	RegisterMetrics()
	listenerConnected.Set(0)
}

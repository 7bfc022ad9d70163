package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const namespace = "cipherroom"

// Metrics groups the process wide collectors. Labels never carry room codes.
type Metrics struct {
	ActiveRooms       prometheus.Gauge
	ActiveConnections prometheus.Gauge
	Events            *prometheus.CounterVec
	Errors            *prometheus.CounterVec
	MessagesRelayed   *prometheus.CounterVec
	StoreFailures     *prometheus.CounterVec
	RetentionRemoved  *prometheus.CounterVec
	RetentionFailures prometheus.Counter
	RetentionDropped  prometheus.Counter
	PublishFailures   prometheus.Counter
	RequestCount      *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec

	// CiphertextBytes is recorded through the OpenTelemetry meter.
	CiphertextBytes metric.Int64Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	meter := newMeterOrNoop(reg)
	ciphertextBytes, err := meter.Int64Histogram(
		"cipherroom_ciphertext_bytes",
		metric.WithDescription("Encoded ciphertext size of relayed messages."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(64, 256, 1024, 4096, 16384, 65536, 98304),
	)
	if err != nil {
		ciphertextBytes, _ = noop.NewMeterProvider().Meter(meterName).Int64Histogram("cipherroom_ciphertext_bytes")
	}

	return &Metrics{
		CiphertextBytes: ciphertextBytes,
		ActiveRooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Rooms currently registered.",
		}),
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Open websocket connections.",
		}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound websocket events by type.",
		}, []string{"type"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Error notices sent to clients by code.",
		}, []string{"code"}),
		MessagesRelayed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_relayed_total",
			Help:      "Messages fanned out to room subscribers by body kind.",
		}, []string{"kind"}),
		StoreFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "Failed message store operations.",
		}, []string{"op"}),
		RetentionRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_removed_total",
			Help:      "Messages removed by retention.",
		}, []string{"scope"}),
		RetentionFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_failures_total",
			Help:      "Retention passes that failed.",
		}),
		RetentionDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_dropped_total",
			Help:      "Retention requests dropped because the queue was full.",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Room lifecycle events that could not be published.",
		}),
		RequestCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// NewNop returns collectors registered nowhere, for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

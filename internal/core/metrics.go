package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "prep"

// Operation outcomes recorded in prep_operations_total.
const (
	outcomeApplied  = "applied"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationTime     *prometheus.HistogramVec
	ingestions        *prometheus.CounterVec
	ingestBytes       prometheus.Histogram
	missingIntroduced prometheus.Counter
	sessions          prometheus.Gauge
	expired           prometheus.Counter
	exports           *prometheus.CounterVec
}

// NewMetrics registers every collector, plus the Go runtime and process
// collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Column operations by key and outcome.",
		}, []string{"op", "outcome"}),
		operationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent applying accepted operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"op"}),
		ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ingestions_total",
			Help:      "File ingestions by detected encoding, or \"failed\".",
		}, []string{"encoding"}),
		ingestBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "ingest_bytes",
			Help:      "Size of successfully ingested files.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}),
		missingIntroduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "missing_values_introduced_total",
			Help:      "Cells that became missing because a conversion failed.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_expired_total",
			Help:      "Sessions removed by the idle sweeper.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "exports_total",
			Help:      "Exports by format.",
		}, []string{"format"}),
	}

	m.Registry.MustRegister(
		m.operations,
		m.operationTime,
		m.ingestions,
		m.ingestBytes,
		m.missingIntroduced,
		m.sessions,
		m.expired,
		m.exports,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) observeOperation(op, outcome string, elapsed time.Duration, missing int) {
	m.operations.WithLabelValues(op, outcome).Inc()
	if outcome == outcomeApplied {
		m.operationTime.WithLabelValues(op).Observe(elapsed.Seconds())
		if missing > 0 {
			m.missingIntroduced.Add(float64(missing))
		}
	}
}

func (m *Metrics) observeIngestion(encoding string, size int64) {
	m.ingestions.WithLabelValues(encoding).Inc()
	if encoding != "failed" {
		m.ingestBytes.Observe(float64(size))
	}
}

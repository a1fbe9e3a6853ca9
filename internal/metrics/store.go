package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backing store and query operation metrics.
var (
	StoreBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cinegraph",
			Name:      "store_breaker_state",
			Help:      "Circuit breaker state per backing store (0=closed, 1=half-open, 2=open)",
		},
		[]string{"store"},
	)

	StoreBreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinegraph",
			Name:      "store_breaker_transitions_total",
			Help:      "Circuit breaker state transitions per backing store",
		},
		[]string{"store", "from", "to"},
	)

	StoreRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinegraph",
			Name:      "store_requests_total",
			Help:      "Backing store calls by outcome (success, failure, timeout, rejected)",
		},
		[]string{"store", "result"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cinegraph",
			Name:      "operation_duration_seconds",
			Help:      "Query operation latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation", "status"},
	)
)

var storeMetricsRegistered bool

// RegisterStoreMetrics registers store and operation metrics. Must be called once from main.
func RegisterStoreMetrics() {
	if storeMetricsRegistered {
		return
	}
	prometheus.MustRegister(StoreBreakerState)
	prometheus.MustRegister(StoreBreakerTransitions)
	prometheus.MustRegister(StoreRequestsTotal)
	prometheus.MustRegister(OperationDuration)
	storeMetricsRegistered = true
}

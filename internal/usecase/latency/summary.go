package latency

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

// NoExpiry is the summary window used when no max age is given. Prometheus summaries always
// rotate, so "never prune" is a window longer than any process lives.
const NoExpiry = 100 * 365 * 24 * time.Hour

// SummaryRecorder keeps streams in process as prometheus summaries.
// Used when no Redis with RedisBloom is available. Streams only grow unless a finite maxAge is set.
type SummaryRecorder struct {
	vec    *prometheus.SummaryVec
	known  sync.Map // name -> struct{}
	maxAge time.Duration
	logger *zap.Logger
}

// NewSummaryRecorder creates the recorder and registers it with reg when reg is non-nil.
// maxAge <= 0 keeps every sample; a positive maxAge turns the estimates into a sliding window.
func NewSummaryRecorder(reg prometheus.Registerer, maxAge time.Duration, logger *zap.Logger) (*SummaryRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxAge <= 0 {
		maxAge = NoExpiry
	}
	vec := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:  "cinegraph",
		Name:       "operation_latency_seconds",
		Help:       "Query operation latency quantiles in seconds",
		Objectives: map[float64]float64{0.9: 0.01, 0.95: 0.005},
		MaxAge:     maxAge,
	}, []string{"operation"})
	if reg != nil {
		if err := reg.Register(vec); err != nil {
			return nil, err
		}
	}
	return &SummaryRecorder{vec: vec, maxAge: maxAge, logger: logger}, nil
}

// Record observes a sample.
func (r *SummaryRecorder) Record(_ context.Context, name string, seconds float64) {
	r.known.Store(name, struct{}{})
	r.vec.WithLabelValues(name).Observe(seconds)
}

// Quantiles returns p90/p95 for every name. Unknown or empty streams report zeros.
func (r *SummaryRecorder) Quantiles(_ context.Context, names ...string) map[string]Quantiles {
	out := make(map[string]Quantiles, len(names))
	for _, name := range names {
		out[name] = r.quantiles(name)
	}
	return out
}

func (r *SummaryRecorder) quantiles(name string) Quantiles {
	if _, ok := r.known.Load(name); !ok {
		return Quantiles{}
	}
	m, ok := r.vec.WithLabelValues(name).(prometheus.Metric)
	if !ok {
		return Quantiles{}
	}
	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		r.logger.Warn("Failed to read latency summary", zap.String("operation", name), zap.Error(err))
		return Quantiles{}
	}

	var q Quantiles
	for _, s := range pb.GetSummary().GetQuantile() {
		switch s.GetQuantile() {
		case 0.9:
			q.P90 = sanitize(s.GetValue())
		case 0.95:
			q.P95 = sanitize(s.GetValue())
		}
	}
	return q
}

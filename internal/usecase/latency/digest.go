package latency

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cinegraph/internal/db"
)

// DefaultKeyPrefix namespaces latency streams in Redis.
const DefaultKeyPrefix = "latency:"

// DigestRecorder keeps one Redis t-digest per operation.
// Concurrent writers rely on TDIGEST.ADD being atomic on the server.
type DigestRecorder struct {
	store  DigestStore
	prefix string
	logger *zap.Logger
}

// NewDigestRecorder creates a recorder writing to keys prefix+name.
func NewDigestRecorder(store DigestStore, prefix string, logger *zap.Logger) *DigestRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DigestRecorder{store: store, prefix: prefix, logger: logger}
}

// Record adds a sample, creating the digest on first use.
func (r *DigestRecorder) Record(ctx context.Context, name string, seconds float64) {
	key := r.prefix + name
	err := r.store.TDigestAdd(ctx, key, seconds)
	if errors.Is(err, db.ErrKeyNotFound) {
		if cerr := r.store.TDigestCreate(ctx, key); cerr != nil && !errors.Is(cerr, db.ErrDigestExists) {
			err = cerr
		} else {
			err = r.store.TDigestAdd(ctx, key, seconds)
		}
	}
	if err != nil {
		r.logger.Warn("Failed to record latency",
			zap.String("operation", name),
			zap.Float64("seconds", seconds),
			zap.Error(err),
		)
	}
}

// Quantiles returns p90/p95 for every name. Unknown or empty streams report zeros.
func (r *DigestRecorder) Quantiles(ctx context.Context, names ...string) map[string]Quantiles {
	out := make(map[string]Quantiles, len(names))
	for _, name := range names {
		out[name] = r.quantiles(ctx, name)
	}
	return out
}

func (r *DigestRecorder) quantiles(ctx context.Context, name string) Quantiles {
	vals, err := r.store.TDigestQuantile(ctx, r.prefix+name, 0.9, 0.95)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			r.logger.Warn("Failed to read latency quantiles", zap.String("operation", name), zap.Error(err))
		}
		return Quantiles{}
	}
	if len(vals) != 2 {
		return Quantiles{}
	}
	return Quantiles{P90: sanitize(vals[0]), P95: sanitize(vals[1])}
}

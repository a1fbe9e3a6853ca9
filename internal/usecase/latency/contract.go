package latency

import "context"

// DigestStore is the t-digest persistence the DigestRecorder needs.
type DigestStore interface {
	TDigestCreate(ctx context.Context, key string) error
	TDigestAdd(ctx context.Context, key string, values ...float64) error
	TDigestQuantile(ctx context.Context, key string, quantiles ...float64) ([]float64, error)
}

package db

import (
	"context"
	"time"
)

// Store is the Redis facade: plot embedding hashes, the vector index, t-digest latency streams
// and the query embedding cache.
//
//nolint:interfacebloat // facade -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	DigestStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HGet(ctx context.Context, key, field string) ([]byte, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// KVStore provides string key-value operations with expiry.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides vector search over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// DigestStore provides t-digest sketches (RedisBloom TDIGEST.* commands).
type DigestStore interface {
	TDigestCreate(ctx context.Context, key string) error
	TDigestAdd(ctx context.Context, key string, values ...float64) error
	TDigestQuantile(ctx context.Context, key string, quantiles ...float64) ([]float64, error)
	Exists(ctx context.Context, key string) (bool, error)
}

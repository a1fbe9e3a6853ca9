package redis

import (
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/cinegraph/internal/db/guard"
)

// NewStoreForTest creates a Store with the provided rueidis client (test-only).
// Calls are guarded by a breaker without a per-call timeout.
func NewStoreForTest(c rueidis.Client) *Store {
	settings := guard.DefaultSettings()
	settings.Timeout = 0
	return &Store{client: c, guard: guard.New(StoreName, settings, nil)}
}

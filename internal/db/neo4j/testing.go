package neo4j

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kailas-cloud/cinegraph/internal/db/guard"
)

// NewStoreForTest creates a Store whose queries are answered by execute (test-only).
func NewStoreForTest(execute func(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)) *Store {
	settings := guard.DefaultSettings()
	settings.Timeout = 0
	return &Store{execute: execute, guard: guard.New(StoreName, settings, nil)}
}

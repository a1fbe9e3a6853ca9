package db

import "context"

// Record is one row of a graph query result keyed by RETURN alias.
type Record map[string]any

// GraphStore is the social likes graph (Neo4j).
type GraphStore interface {
	Pinger
	// Query runs a read-only parameterized Cypher statement.
	Query(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
}

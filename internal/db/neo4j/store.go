// Package neo4j implements db.GraphStore over the official Neo4j Go driver.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinegraph/internal/db"
	"github.com/kailas-cloud/cinegraph/internal/db/guard"
)

// StoreName labels Neo4j in errors, logs and metrics.
const StoreName = "neo4j"

// Compile-time check: Store implements db.GraphStore.
var _ db.GraphStore = (*Store)(nil)

// Config holds connection parameters for the likes graph.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
	Guard    guard.Settings
}

type executeFunc func(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)

// Store implements db.GraphStore.
type Store struct {
	driver  neo4j.DriverWithContext
	execute executeFunc
	guard   *guard.Guard
}

// NewStore creates a driver. Connections are opened lazily.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("uri is required")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		boundedBy(cfg.Guard.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}

	s := &Store{driver: driver, guard: guard.New(StoreName, cfg.Guard, logger)}
	s.execute = func(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
		res, err := neo4j.ExecuteQuery(ctx, driver, cypher, params,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(database),
			neo4j.ExecuteQueryWithReadersRouting(),
		)
		if err != nil {
			return nil, err
		}
		return res.Records, nil
	}
	return s, nil
}

// boundedBy caps the driver's own retry and connect budgets at the per-call timeout.
// Left alone, managed transactions keep retrying for 30s after the call context expires.
func boundedBy(timeout time.Duration) func(*config.Config) {
	return func(c *config.Config) {
		if timeout <= 0 {
			return
		}
		c.MaxTransactionRetryTime = timeout
		c.ConnectionAcquisitionTimeout = timeout
		c.SocketConnectTimeout = timeout
	}
}

// Ping verifies connectivity to the server.
func (s *Store) Ping(ctx context.Context) error {
	return guard.Run(ctx, s.guard, func(ctx context.Context) error {
		if err := s.driver.VerifyConnectivity(ctx); err != nil {
			return fmt.Errorf("verify connectivity: %w", err)
		}
		return nil
	})
}

// Close releases the driver's connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// WaitForReady polls connectivity until the server responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for neo4j: %w", ctx.Err())
		case <-ticker.C:
			if err := s.driver.VerifyConnectivity(ctx); err == nil {
				return nil
			}
		}
	}
}

// Query runs a read-only statement with bound parameters and returns rows keyed by alias.
func (s *Store) Query(ctx context.Context, cypher string, params map[string]any) ([]db.Record, error) {
	return guard.Do(ctx, s.guard, func(ctx context.Context) ([]db.Record, error) {
		records, err := s.execute(ctx, cypher, params)
		if err != nil {
			return nil, &db.Error{Op: db.OpCypher, Err: err}
		}
		out := make([]db.Record, 0, len(records))
		for _, rec := range records {
			out = append(out, rec.AsMap())
		}
		return out, nil
	})
}

// Package mongo implements db.DocumentStore over the official MongoDB driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinegraph/internal/db"
	"github.com/kailas-cloud/cinegraph/internal/db/guard"
)

// StoreName labels MongoDB in errors, logs and metrics.
const StoreName = "mongo"

// Compile-time check: Store implements db.DocumentStore.
var _ db.DocumentStore = (*Store)(nil)

// Config holds connection parameters for the catalog database.
type Config struct {
	URI      string
	Database string
	Guard    guard.Settings
}

// Store implements db.DocumentStore.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	guard  *guard.Guard
}

// NewStore connects to MongoDB. The driver connects lazily; use WaitForReady to block on it.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}

	opts := options.Client().ApplyURI(cfg.URI).SetAppName("cinegraph")
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return newStore(client, cfg.Database, guard.New(StoreName, cfg.Guard, logger)), nil
}

func newStore(client *mongo.Client, database string, g *guard.Guard) *Store {
	return &Store{client: client, db: client.Database(database), guard: g}
}

// Ping checks connectivity against the primary.
func (s *Store) Ping(ctx context.Context) error {
	return guard.Run(ctx, s.guard, func(ctx context.Context) error {
		return wrap("ping", s.client.Ping(ctx, readpref.Primary()))
	})
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// WaitForReady polls Ping until the server responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for mongo: %w", ctx.Err())
		case <-ticker.C:
			if err := s.client.Ping(ctx, readpref.Primary()); err == nil {
				return nil
			}
		}
	}
}

// Find decodes every matching document into out.
func (s *Store) Find(ctx context.Context, collection string, filter any, fo db.FindOptions, out any) error {
	opts := options.Find()
	if fo.Projection != nil {
		opts.SetProjection(fo.Projection)
	}
	if fo.Sort != nil {
		opts.SetSort(fo.Sort)
	}
	if fo.Limit > 0 {
		opts.SetLimit(fo.Limit)
	}

	return guard.Run(ctx, s.guard, func(ctx context.Context) error {
		cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
		if err != nil {
			return wrap(db.OpFind, err)
		}
		return wrap(db.OpFind, cur.All(ctx, out))
	})
}

// FindOne decodes the first match into out. No match is db.ErrKeyNotFound.
func (s *Store) FindOne(ctx context.Context, collection string, filter, projection any, out any) error {
	opts := options.FindOne()
	if projection != nil {
		opts.SetProjection(projection)
	}

	return guard.Run(ctx, s.guard, func(ctx context.Context) error {
		err := s.db.Collection(collection).FindOne(ctx, filter, opts).Decode(out)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &db.Error{Op: db.OpFindOne, Err: db.ErrKeyNotFound}
		}
		return wrap(db.OpFindOne, err)
	})
}

// Aggregate runs pipeline and decodes every result into out.
func (s *Store) Aggregate(ctx context.Context, collection string, pipeline any, out any) error {
	return guard.Run(ctx, s.guard, func(ctx context.Context) error {
		cur, err := s.db.Collection(collection).Aggregate(ctx, pipeline)
		if err != nil {
			return wrap(db.OpAggregate, err)
		}
		return wrap(db.OpAggregate, cur.All(ctx, out))
	})
}

// wrap tags err with op. Driver-side timeouts are reported as deadline errors.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsTimeout(err) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return &db.Error{Op: op, Err: err}
}

package mongo

import (
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/cinegraph/internal/db/guard"
)

// NewStoreForTest creates a Store over an existing client (test-only).
func NewStoreForTest(client *mongo.Client, database string) *Store {
	settings := guard.DefaultSettings()
	settings.Timeout = 0
	return newStore(client, database, guard.New(StoreName, settings, nil))
}

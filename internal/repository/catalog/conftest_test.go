package catalog

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/cinegraph/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	findFn      func(ctx context.Context, collection string, filter any, opts db.FindOptions, out any) error
	findOneFn   func(ctx context.Context, collection string, filter, projection any, out any) error
	aggregateFn func(ctx context.Context, collection string, pipeline any, out any) error
}

func (m *mockStore) Find(ctx context.Context, collection string, filter any, opts db.FindOptions, out any) error {
	if m.findFn != nil {
		return m.findFn(ctx, collection, filter, opts, out)
	}
	return nil
}

func (m *mockStore) FindOne(ctx context.Context, collection string, filter, projection any, out any) error {
	if m.findOneFn != nil {
		return m.findOneFn(ctx, collection, filter, projection, out)
	}
	return db.ErrKeyNotFound
}

func (m *mockStore) Aggregate(ctx context.Context, collection string, pipeline any, out any) error {
	if m.aggregateFn != nil {
		return m.aggregateFn(ctx, collection, pipeline, out)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, ""), ms
}

// stage returns the value of the first pipeline stage named op.
func stage(t *testing.T, pipeline any, op string) any {
	t.Helper()
	p, ok := pipeline.(mongo.Pipeline)
	if !ok {
		t.Fatalf("pipeline is %T, want mongo.Pipeline", pipeline)
	}
	for _, s := range p {
		if len(s) == 1 && s[0].Key == op {
			return s[0].Value
		}
	}
	t.Fatalf("stage %s not found in %v", op, p)
	return nil
}

// field returns the value stored under key in d.
func field(t *testing.T, d any, key string) any {
	t.Helper()
	doc, ok := d.(bson.D)
	if !ok {
		t.Fatalf("value is %T, want bson.D", d)
	}
	for _, e := range doc {
		if e.Key == key {
			return e.Value
		}
	}
	t.Fatalf("key %s not found in %v", key, doc)
	return nil
}

func keys(d bson.D) []string {
	out := make([]string, len(d))
	for i, e := range d {
		out[i] = e.Key
	}
	return out
}

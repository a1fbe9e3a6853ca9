package plot

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/kailas-cloud/cinegraph/internal/db"
	"github.com/kailas-cloud/cinegraph/internal/domain/vector"
)

// memStore is an in-memory hash store with a brute-force cosine KNN.
type memStore struct {
	mu      sync.Mutex
	hashes  map[string]map[string]string
	indexes map[string]*db.IndexDefinition

	searchFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func newMemStore() *memStore {
	return &memStore{
		hashes:  make(map[string]map[string]string),
		indexes: make(map[string]*db.IndexDefinition),
	}
}

func (m *memStore) HGet(_ context.Context, key, field string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	v, ok := h[field]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return []byte(v), nil
}

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indexes[q.IndexName]; !ok {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}

	var entries []db.SearchEntry
	for key, h := range m.hashes {
		raw, ok := h[q.VectorField]
		if !ok {
			continue
		}
		v, err := vector.Decode([]byte(raw))
		if err != nil {
			continue
		}
		entries = append(entries, db.SearchEntry{Key: key, Score: 1 - vector.Cosine(q.Vector, v)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score < entries[j].Score
		}
		return entries[i].Key < entries[j].Key
	})
	if len(entries) > q.K {
		entries = entries[:q.K]
	}
	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

func (m *memStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	m.indexes[def.Name] = def
	return nil
}

func (m *memStore) IndexExists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.indexes[name]
	return ok, nil
}

func newTestRepo(t *testing.T, dim int) (*Repo, *memStore) {
	t.Helper()
	ms := newMemStore()
	cfg := DefaultConfig()
	cfg.Dim = dim
	return New(ms, cfg), ms
}

// axis returns a unit vector of dim components pointing mostly along i.
func axis(dim, i int, tilt float32) []float32 {
	v := make([]float32, dim)
	v[i] = 1
	v[(i+1)%dim] = tilt
	return v
}

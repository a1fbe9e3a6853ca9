// Package plot stores plot embeddings in Redis hashes and queries the HNSW index over them.
package plot

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/cinegraph/internal/db"
	"github.com/kailas-cloud/cinegraph/internal/domain"
	"github.com/kailas-cloud/cinegraph/internal/domain/movie"
	"github.com/kailas-cloud/cinegraph/internal/domain/vector"
)

// store is the consumer interface for plot embeddings (ISP).
type store interface {
	HGet(ctx context.Context, key, field string) ([]byte, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Config names the index and field layout.
type Config struct {
	IndexName   string
	VectorField string
	Dim         int
	// HNSW build parameters; zero keeps the server defaults.
	M              int
	EFConstruction int
}

// DefaultConfig matches the movie_plot_index layout.
func DefaultConfig() Config {
	return Config{
		IndexName:   "movie_plot_index",
		VectorField: "plot_embedding",
		Dim:         vector.PlotDim,
	}
}

// Repo implements usecase/similarity.Repository.
type Repo struct {
	store store
	cfg   Config
}

// New creates a plot repository. Zero fields of cfg fall back to DefaultConfig.
func New(s store, cfg Config) *Repo {
	def := DefaultConfig()
	if cfg.IndexName == "" {
		cfg.IndexName = def.IndexName
	}
	if cfg.VectorField == "" {
		cfg.VectorField = def.VectorField
	}
	if cfg.Dim <= 0 {
		cfg.Dim = def.Dim
	}
	return &Repo{store: s, cfg: cfg}
}

// Embedding returns the stored embedding of id, or domain.ErrNotFound when the movie has none.
func (r *Repo) Embedding(ctx context.Context, id int) ([]float32, error) {
	key := movie.EmbeddingKey(id)
	raw, err := r.store.HGet(ctx, key, r.cfg.VectorField)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("embedding %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("hget %s: %w", key, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("embedding %s: %w", key, domain.ErrNotFound)
	}
	vec, err := vector.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w: %w", key, domain.ErrDataInconsistency, err)
	}
	return vec, nil
}

// Nearest returns up to k neighbors of vec, closest first.
// Index keys that do not parse as movie ids are skipped.
func (r *Repo) Nearest(ctx context.Context, vec []float32, k int) ([]vector.Neighbor, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:   r.cfg.IndexName,
		VectorField: r.cfg.VectorField,
		Vector:      vec,
		K:           k,
		// id only; the hash carries nothing else worth returning
		ReturnFields: []string{"id"},
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("index %s: %w: %w", r.cfg.IndexName, domain.ErrBackingStoreUnavailable, err)
		}
		return nil, fmt.Errorf("knn %s: %w", r.cfg.IndexName, err)
	}

	out := make([]vector.Neighbor, 0, len(res.Entries))
	for _, e := range res.Entries {
		id, err := movie.IDFromEmbeddingKey(e.Key)
		if err != nil {
			continue
		}
		out = append(out, vector.Neighbor{ID: id, Distance: e.Score})
	}
	return out, nil
}

// PutEmbedding stores vec as the embedding of id.
func (r *Repo) PutEmbedding(ctx context.Context, id int, vec []float32) error {
	if err := vector.CheckDim(vec, r.cfg.Dim); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	key := movie.EmbeddingKey(id)
	if err := r.store.HSet(ctx, key, map[string]string{r.cfg.VectorField: string(vector.Encode(vec))}); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// EnsureIndex creates the vector index when it is missing. Reports whether it was created.
func (r *Repo) EnsureIndex(ctx context.Context) (bool, error) {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return false, fmt.Errorf("index info %s: %w", r.cfg.IndexName, err)
	}
	if exists {
		return false, nil
	}

	def, err := db.NewIndex(r.cfg.IndexName).
		Prefix(movie.EmbeddingKeyPrefix).
		VectorHNSW(r.cfg.VectorField, r.cfg.Dim, db.DistanceCosine, r.cfg.M, r.cfg.EFConstruction).
		Build()
	if err != nil {
		return false, fmt.Errorf("build index %s: %w", r.cfg.IndexName, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", r.cfg.IndexName, err)
	}
	return true, nil
}

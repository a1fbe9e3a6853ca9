package similarity

import (
	"context"

	"github.com/kailas-cloud/cinegraph/internal/domain/movie"
	"github.com/kailas-cloud/cinegraph/internal/domain/vector"
)

// PlotRepository reads stored plot embeddings and runs KNN over them.
type PlotRepository interface {
	Embedding(ctx context.Context, id int) ([]float32, error)
	Nearest(ctx context.Context, vec []float32, k int) ([]vector.Neighbor, error)
}

// Hydrator resolves movie ids into catalog summaries.
type Hydrator interface {
	Hydrate(ctx context.Context, ids []int, order movie.Order) ([]movie.Summary, error)
}

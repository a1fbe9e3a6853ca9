package social

import (
	"context"

	"github.com/kailas-cloud/cinegraph/internal/domain/movie"
	"github.com/kailas-cloud/cinegraph/internal/domain/social"
)

// Repository reads the likes graph.
type Repository interface {
	Likers(ctx context.Context, movieID int, exclude string) ([]string, error)
	LikedMovies(ctx context.Context, username string) (social.Set, error)
	CoLikers(ctx context.Context, username string) (map[string]social.Set, error)
}

// Hydrator resolves movie ids into catalog summaries.
type Hydrator interface {
	Hydrate(ctx context.Context, ids []int, order movie.Order) ([]movie.Summary, error)
}

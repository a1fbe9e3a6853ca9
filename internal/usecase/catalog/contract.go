package catalog

import (
	"context"

	"github.com/kailas-cloud/cinegraph/internal/domain/movie"
)

// Repository defines the storage contract for catalog queries.
type Repository interface {
	Search(ctx context.Context, text string, limit int) (movie.SearchResult, error)
	TopRated(ctx context.Context, minVotes, limit int) ([]movie.Summary, error)
	Recent(ctx context.Context, minVotes, limit int) ([]movie.Summary, error)
	Details(ctx context.Context, id int) (movie.Detail, error)
	SameGenre(ctx context.Context, id int, genres []string, minVotes, limit int) ([]movie.Summary, error)
	ByIDs(ctx context.Context, ids []int, order movie.Order) ([]movie.Summary, error)
}

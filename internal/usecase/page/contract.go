package page

import (
	"context"

	"github.com/kailas-cloud/cinegraph/internal/domain/movie"
)

// Catalog provides list and detail queries.
type Catalog interface {
	TopRatedMovies(ctx context.Context) ([]movie.Summary, error)
	RecentMovies(ctx context.Context) ([]movie.Summary, error)
	MovieDetails(ctx context.Context, id int) (*movie.Detail, error)
	SameGenreMovies(ctx context.Context, id int, genres []string) ([]movie.Summary, error)
}

// Similarity provides plot neighbours.
type Similarity interface {
	SimilarMovies(ctx context.Context, id int) ([]movie.Summary, error)
}

// Social provides likes and recommendations.
type Social interface {
	MovieLikers(ctx context.Context, username string, movieID int) ([]string, error)
	RecommendationsForUser(ctx context.Context, username string) ([]movie.Summary, error)
}

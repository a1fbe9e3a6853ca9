// Package catalog answers list, search and detail queries over the movie catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cinegraph/internal/domain"
	"github.com/kailas-cloud/cinegraph/internal/domain/movie"
	"github.com/kailas-cloud/cinegraph/internal/usecase/latency"
)

// Query limits and vote thresholds.
const (
	ListLimit         = 25
	SameGenreLimit    = 8
	TopRatedMinVotes  = 5000 // exclusive
	RecentMinVotes    = 50
	SameGenreMinVotes = 500
)

// Service handles catalog queries. Every public query is latency-recorded under its operation name.
type Service struct {
	repo   Repository
	rec    latency.Recorder
	logger *zap.Logger
}

// New creates a catalog service.
func New(repo Repository, rec latency.Recorder, logger *zap.Logger) *Service {
	if rec == nil {
		rec = latency.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, rec: rec, logger: logger}
}

// SearchMovies runs a full-text search ranked by textScore × popularity, with facets over all matches.
func (s *Service) SearchMovies(ctx context.Context, text string) (movie.SearchResult, error) {
	return latency.Measure(ctx, s.rec, latency.OpSearchMovies, func(ctx context.Context) (movie.SearchResult, error) {
		text = strings.TrimSpace(text)
		if text == "" {
			return movie.SearchResult{}, domain.InvalidInputf("search text is required")
		}
		res, err := s.repo.Search(ctx, text, ListLimit)
		if err != nil {
			return movie.SearchResult{}, fmt.Errorf("search movies: %w", err)
		}
		return res, nil
	})
}

// TopRatedMovies lists the best rated movies with more than TopRatedMinVotes votes.
func (s *Service) TopRatedMovies(ctx context.Context) ([]movie.Summary, error) {
	return latency.Measure(ctx, s.rec, latency.OpTopRated, func(ctx context.Context) ([]movie.Summary, error) {
		out, err := s.repo.TopRated(ctx, TopRatedMinVotes, ListLimit)
		if err != nil {
			return nil, fmt.Errorf("top rated movies: %w", err)
		}
		return out, nil
	})
}

// RecentMovies lists the latest releases with at least RecentMinVotes votes.
func (s *Service) RecentMovies(ctx context.Context) ([]movie.Summary, error) {
	return latency.Measure(ctx, s.rec, latency.OpRecent, func(ctx context.Context) ([]movie.Summary, error) {
		out, err := s.repo.Recent(ctx, RecentMinVotes, ListLimit)
		if err != nil {
			return nil, fmt.Errorf("recent movies: %w", err)
		}
		return out, nil
	})
}

// MovieDetails returns the detail view of id, or nil when the catalog has no such movie.
func (s *Service) MovieDetails(ctx context.Context, id int) (*movie.Detail, error) {
	return latency.Measure(ctx, s.rec, latency.OpMovieDetails, func(ctx context.Context) (*movie.Detail, error) {
		d, err := s.repo.Details(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("movie details: %w", err)
		}
		return &d, nil
	})
}

// SameGenreMovies ranks other well-voted movies by how many of genres they share, then by rating.
func (s *Service) SameGenreMovies(ctx context.Context, id int, genres []string) ([]movie.Summary, error) {
	return latency.Measure(ctx, s.rec, latency.OpSameGenre, func(ctx context.Context) ([]movie.Summary, error) {
		genres = cleanGenres(genres)
		if len(genres) == 0 {
			return []movie.Summary{}, nil
		}
		out, err := s.repo.SameGenre(ctx, id, genres, SameGenreMinVotes, SameGenreLimit)
		if err != nil {
			return nil, fmt.Errorf("same genre movies: %w", err)
		}
		return rankSameGenre(out, id), nil
	})
}

// Hydrate resolves ids into summaries. Ids the catalog does not know are dropped and logged.
// With movie.OrderNone the result follows store order, not ids order.
func (s *Service) Hydrate(ctx context.Context, ids []int, order movie.Order) ([]movie.Summary, error) {
	return latency.Measure(ctx, s.rec, latency.OpHydrate, func(ctx context.Context) ([]movie.Summary, error) {
		if len(ids) == 0 {
			return []movie.Summary{}, nil
		}
		out, err := s.repo.ByIDs(ctx, ids, order)
		if err != nil {
			return nil, fmt.Errorf("hydrate: %w", err)
		}
		if missing := missingIDs(ids, out); len(missing) > 0 {
			s.logger.Warn("Dropped ids missing from catalog",
				zap.Error(domain.ErrDataInconsistency),
				zap.Ints("missing", missing),
			)
		}
		if order == movie.OrderPopularity {
			sort.SliceStable(out, func(i, j int) bool { return out[i].Popularity > out[j].Popularity })
		}
		return out, nil
	})
}

// rankSameGenre enforces the ranking contract on store output: no self, match count then rating, stable.
func rankSameGenre(in []movie.Summary, self int) []movie.Summary {
	out := make([]movie.Summary, 0, len(in))
	for _, m := range in {
		if m.ID == self {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MatchCount != out[j].MatchCount {
			return out[i].MatchCount > out[j].MatchCount
		}
		return out[i].VoteAverage > out[j].VoteAverage
	})
	if len(out) > SameGenreLimit {
		out = out[:SameGenreLimit]
	}
	return out
}

func cleanGenres(genres []string) []string {
	seen := make(map[string]struct{}, len(genres))
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

func missingIDs(ids []int, found []movie.Summary) []int {
	have := make(map[int]struct{}, len(found))
	for _, m := range found {
		have[m.ID] = struct{}{}
	}
	var missing []int
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

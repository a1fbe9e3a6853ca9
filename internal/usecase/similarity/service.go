// Package similarity finds movies with similar plots through the Redis vector index.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cinegraph/internal/domain"
	"github.com/kailas-cloud/cinegraph/internal/domain/movie"
	"github.com/kailas-cloud/cinegraph/internal/domain/vector"
	"github.com/kailas-cloud/cinegraph/internal/usecase/latency"
)

// DefaultK is the number of nearest neighbours fetched per query.
const DefaultK = 20

// Service answers plot similarity queries. Proximity only selects the candidates;
// results are ordered by popularity.
type Service struct {
	plots    PlotRepository
	catalog  Hydrator
	embedder domain.Embedder
	rec      latency.Recorder
	k        int
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEmbedder enables free-text plot search.
func WithEmbedder(e domain.Embedder) Option {
	return func(s *Service) { s.embedder = e }
}

// WithK overrides DefaultK.
func WithK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.k = k
		}
	}
}

// New creates a similarity service.
func New(plots PlotRepository, catalog Hydrator, rec latency.Recorder, logger *zap.Logger, opts ...Option) *Service {
	if rec == nil {
		rec = latency.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{plots: plots, catalog: catalog, rec: rec, k: DefaultK, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SimilarMovies returns movies whose plot embeddings are nearest to id's, excluding id itself.
// A movie without a stored embedding has no similar movies.
func (s *Service) SimilarMovies(ctx context.Context, id int) ([]movie.Summary, error) {
	return latency.Measure(ctx, s.rec, latency.OpSimilarMovies, func(ctx context.Context) ([]movie.Summary, error) {
		vec, err := s.plots.Embedding(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return []movie.Summary{}, nil
			}
			return nil, fmt.Errorf("similar movies: %w", err)
		}
		return s.nearestMovies(ctx, vec, id)
	})
}

// SearchByPlot embeds a free-text plot description and returns the movies nearest to it.
func (s *Service) SearchByPlot(ctx context.Context, text string) ([]movie.Summary, error) {
	return latency.Measure(ctx, s.rec, latency.OpSearchByPlot, func(ctx context.Context) ([]movie.Summary, error) {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, domain.InvalidInputf("plot text is required")
		}
		if s.embedder == nil {
			return nil, fmt.Errorf("plot search: %w", domain.ErrNotImplemented)
		}
		res, err := s.embedder.Embed(ctx, text)
		if err != nil {
			if !errors.Is(err, domain.ErrEmbeddingProviderError) {
				err = fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
			}
			return nil, fmt.Errorf("plot search: %w", err)
		}
		domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
		return s.nearestMovies(ctx, res.Embedding)
	})
}

// nearestMovies runs KNN for vec, drops the excluded ids and hydrates the rest by popularity.
func (s *Service) nearestMovies(ctx context.Context, vec []float32, exclude ...int) ([]movie.Summary, error) {
	neighbors, err := s.plots.Nearest(ctx, vec, s.k)
	if err != nil {
		return nil, fmt.Errorf("nearest plots: %w", err)
	}
	ids := neighborIDs(neighbors, exclude)
	if len(ids) == 0 {
		return []movie.Summary{}, nil
	}
	out, err := s.catalog.Hydrate(ctx, ids, movie.OrderPopularity)
	if err != nil {
		return nil, fmt.Errorf("hydrate neighbors: %w", err)
	}
	return out, nil
}

func neighborIDs(neighbors []vector.Neighbor, exclude []int) []int {
	ids := make([]int, 0, len(neighbors))
	seen := make(map[int]struct{}, len(neighbors)+len(exclude))
	for _, id := range exclude {
		seen[id] = struct{}{}
	}
	for _, n := range neighbors {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		ids = append(ids, n.ID)
	}
	return ids
}

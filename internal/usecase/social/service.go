// Package social recommends movies through user-based collaborative filtering over likes.
package social

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cinegraph/internal/domain"
	"github.com/kailas-cloud/cinegraph/internal/domain/movie"
	"github.com/kailas-cloud/cinegraph/internal/domain/social"
	"github.com/kailas-cloud/cinegraph/internal/usecase/latency"
)

// Ranking limits.
const (
	PeerLimit           = 10
	RecommendationLimit = 10
)

// Service answers likes and recommendation queries.
type Service struct {
	repo    Repository
	catalog Hydrator
	rec     latency.Recorder
	logger  *zap.Logger
}

// New creates a social service.
func New(repo Repository, catalog Hydrator, rec latency.Recorder, logger *zap.Logger) *Service {
	if rec == nil {
		rec = latency.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, catalog: catalog, rec: rec, logger: logger}
}

// MovieLikers returns the users other than username who like movieID, sorted.
// An empty username excludes nobody.
func (s *Service) MovieLikers(ctx context.Context, username string, movieID int) ([]string, error) {
	return latency.Measure(ctx, s.rec, latency.OpMovieLikers, func(ctx context.Context) ([]string, error) {
		out, err := s.repo.Likers(ctx, movieID, strings.TrimSpace(username))
		if err != nil {
			return nil, fmt.Errorf("movie likers: %w", err)
		}
		if out == nil {
			out = []string{}
		}
		sort.Strings(out)
		return out, nil
	})
}

// RecommendationsForUser ranks peers by Jaccard similarity of likes, then returns the movies
// most liked among the top peers that username has not liked yet.
// The result is in catalog store order.
func (s *Service) RecommendationsForUser(ctx context.Context, username string) ([]movie.Summary, error) {
	return latency.Measure(ctx, s.rec, latency.OpRecommendations, func(ctx context.Context) ([]movie.Summary, error) {
		username = strings.TrimSpace(username)
		if username == "" {
			return nil, domain.InvalidInputf("username is required")
		}

		mine, err := s.repo.LikedMovies(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("liked movies: %w", err)
		}
		if len(mine) == 0 {
			return []movie.Summary{}, nil
		}

		others, err := s.repo.CoLikers(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("co-likers: %w", err)
		}
		peers := social.RankPeers(mine, others, PeerLimit)
		if len(peers) == 0 {
			return []movie.Summary{}, nil
		}

		candidates := social.AggregateCandidates(mine, peers, others, RecommendationLimit)
		ids := s.catalogIDs(candidates)
		if len(ids) == 0 {
			return []movie.Summary{}, nil
		}

		out, err := s.catalog.Hydrate(ctx, ids, movie.OrderNone)
		if err != nil {
			return nil, fmt.Errorf("hydrate recommendations: %w", err)
		}
		return out, nil
	})
}

// catalogIDs converts graph ids, dropping those the catalog cannot key.
func (s *Service) catalogIDs(candidates []social.Candidate) []int {
	ids := make([]int, 0, len(candidates))
	for _, c := range candidates {
		id, err := movie.IDFromGraph(c.MovieID)
		if err != nil {
			s.logger.Warn("Dropped graph movie id", zap.String("movie_id", c.MovieID), zap.Error(err))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Package page composes the home and movie views from the query engines.
package page

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/cinegraph/internal/domain/movie"
	"github.com/kailas-cloud/cinegraph/internal/usecase/latency"
)

// Home is the landing view.
type Home struct {
	TopRated        []movie.Summary              `json:"top_rated"`
	Recent          []movie.Summary              `json:"recent"`
	Recommendations []movie.Summary              `json:"recommendations"`
	Metrics         map[string]latency.Quantiles `json:"metrics"`
}

// Movie is the detail view. Movie is nil when the catalog has no such id.
type Movie struct {
	Movie     *movie.Detail                `json:"movie"`
	SameGenre []movie.Summary              `json:"same_genre"`
	Similar   []movie.Summary              `json:"similar"`
	Likes     []string                     `json:"likes"`
	Metrics   map[string]latency.Quantiles `json:"metrics"`
}

// Latency streams reported with each view.
var (
	homeMetrics  = []string{latency.OpTopRated, latency.OpRecent, latency.OpRecommendations}
	movieMetrics = []string{latency.OpMovieDetails, latency.OpMovieLikers, latency.OpSimilarMovies, latency.OpSameGenre}
)

// Service builds page views.
type Service struct {
	catalog    Catalog
	similarity Similarity
	social     Social
	rec        latency.Recorder
}

// New creates a page service.
func New(catalog Catalog, similarity Similarity, social Social, rec latency.Recorder) *Service {
	if rec == nil {
		rec = latency.Nop{}
	}
	return &Service{catalog: catalog, similarity: similarity, social: social, rec: rec}
}

// HomePage lists top rated and recent movies, plus recommendations when username is set.
func (s *Service) HomePage(ctx context.Context, username string) (Home, error) {
	username = strings.TrimSpace(username)
	h := Home{Recommendations: []movie.Summary{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.catalog.TopRatedMovies(gctx)
		h.TopRated = out
		return err
	})
	g.Go(func() error {
		out, err := s.catalog.RecentMovies(gctx)
		h.Recent = out
		return err
	})
	if username != "" {
		g.Go(func() error {
			out, err := s.social.RecommendationsForUser(gctx, username)
			h.Recommendations = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Home{}, fmt.Errorf("home page: %w", err)
	}

	h.Metrics = s.rec.Quantiles(ctx, homeMetrics...)
	return h, nil
}

// MoviePage loads the details of id and, when it exists, its same-genre and similar movies
// and (for a known username) the other users who like it.
func (s *Service) MoviePage(ctx context.Context, username string, id int) (Movie, error) {
	username = strings.TrimSpace(username)
	p := Movie{SameGenre: []movie.Summary{}, Similar: []movie.Summary{}, Likes: []string{}}

	detail, err := s.catalog.MovieDetails(ctx, id)
	if err != nil {
		return Movie{}, fmt.Errorf("movie page: %w", err)
	}
	p.Movie = detail

	if detail != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			out, err := s.catalog.SameGenreMovies(gctx, id, detail.Genres)
			p.SameGenre = out
			return err
		})
		g.Go(func() error {
			out, err := s.similarity.SimilarMovies(gctx, id)
			p.Similar = out
			return err
		})
		if username != "" {
			g.Go(func() error {
				out, err := s.social.MovieLikers(gctx, username, id)
				p.Likes = out
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return Movie{}, fmt.Errorf("movie page: %w", err)
		}
	}

	p.Metrics = s.rec.Quantiles(ctx, movieMetrics...)
	return p, nil
}

// Package latency keeps per-operation latency streams and reports their p90/p95.
package latency

import (
	"context"
	"math"
	"time"

	"github.com/kailas-cloud/cinegraph/internal/metrics"
)

// Operation names under which query latencies are recorded.
const (
	OpSearchMovies    = "search_movie"
	OpTopRated        = "get_top_rated_movies"
	OpRecent          = "get_recent_released_movies"
	OpMovieDetails    = "get_movie_details"
	OpSameGenre       = "get_same_genres_movies"
	OpSimilarMovies   = "get_similar_movies"
	OpSearchByPlot    = "search_by_plot"
	OpMovieLikers     = "get_movie_likes"
	OpRecommendations = "get_recommendations_for_user"
	OpHydrate         = "hydrate_movies"
)

// Operations lists every recorded operation name.
var Operations = []string{
	OpSearchMovies, OpTopRated, OpRecent, OpMovieDetails, OpSameGenre,
	OpSimilarMovies, OpSearchByPlot, OpMovieLikers, OpRecommendations, OpHydrate,
}

// Quantiles are the p90 and p95 latency estimates of one stream, in seconds.
type Quantiles struct {
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
}

// Recorder appends samples to named streams and estimates their quantiles.
// Neither method fails: store problems are logged and degrade to zero quantiles.
type Recorder interface {
	Record(ctx context.Context, name string, seconds float64)
	Quantiles(ctx context.Context, names ...string) map[string]Quantiles
}

// Measure runs fn and records its wall-clock latency under name, on success, error and panic alike.
func Measure[T any](ctx context.Context, rec Recorder, name string, fn func(ctx context.Context) (T, error)) (res T, err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Seconds()
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.OperationDuration.WithLabelValues(name, status).Observe(elapsed)
		if rec != nil {
			// the sample outlives a cancelled request
			rec.Record(context.WithoutCancel(ctx), name, elapsed)
		}
	}()
	return fn(ctx)
}

// Nop discards samples and reports zero quantiles.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, string, float64) {}

// Quantiles implements Recorder.
func (Nop) Quantiles(_ context.Context, names ...string) map[string]Quantiles {
	out := make(map[string]Quantiles, len(names))
	for _, n := range names {
		out[n] = Quantiles{}
	}
	return out
}

// sanitize maps undefined or negative estimates to 0.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

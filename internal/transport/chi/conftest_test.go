package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinegraph/internal/domain"
	"github.com/kailas-cloud/cinegraph/internal/domain/movie"
	"github.com/kailas-cloud/cinegraph/internal/domain/social"
	"github.com/kailas-cloud/cinegraph/internal/domain/vector"
	cataloguc "github.com/kailas-cloud/cinegraph/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/cinegraph/internal/usecase/health"
	"github.com/kailas-cloud/cinegraph/internal/usecase/latency"
	pageuc "github.com/kailas-cloud/cinegraph/internal/usecase/page"
	similarityuc "github.com/kailas-cloud/cinegraph/internal/usecase/similarity"
	socialuc "github.com/kailas-cloud/cinegraph/internal/usecase/social"
)

// fakeCatalog is an in-memory catalog.Repository. err, when set, fails every call.
type fakeCatalog struct {
	movies map[int]movie.Detail
	err    error
}

func (f *fakeCatalog) Search(_ context.Context, text string, _ int) (movie.SearchResult, error) {
	if f.err != nil {
		return movie.SearchResult{}, f.err
	}
	return movie.SearchResult{Results: []movie.Summary{{ID: 603, Title: text}}}, nil
}

func (f *fakeCatalog) TopRated(context.Context, int, int) ([]movie.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []movie.Summary{{ID: 278, Title: "The Shawshank Redemption"}}, nil
}

func (f *fakeCatalog) Recent(context.Context, int, int) ([]movie.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func (f *fakeCatalog) Details(_ context.Context, id int) (movie.Detail, error) {
	if f.err != nil {
		return movie.Detail{}, f.err
	}
	d, ok := f.movies[id]
	if !ok {
		return movie.Detail{}, domain.ErrNotFound
	}
	return d, nil
}

func (f *fakeCatalog) SameGenre(_ context.Context, id int, genres []string, _, _ int) ([]movie.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []movie.Summary{}
	for mid, d := range f.movies {
		if mid == id {
			continue
		}
		for _, g := range d.Genres {
			for _, want := range genres {
				if g == want {
					out = append(out, movie.Summary{ID: mid, Title: d.Title, MatchCount: 1})
				}
			}
		}
	}
	return out, nil
}

func (f *fakeCatalog) ByIDs(_ context.Context, ids []int, _ movie.Order) ([]movie.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []movie.Summary{}
	for _, id := range ids {
		if d, ok := f.movies[id]; ok {
			out = append(out, movie.Summary{ID: id, Title: d.Title})
		}
	}
	return out, nil
}

type fakePlots struct {
	vectors map[int][]float32
}

func (f *fakePlots) Embedding(_ context.Context, id int) ([]float32, error) {
	v, ok := f.vectors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (f *fakePlots) Nearest(_ context.Context, vec []float32, k int) ([]vector.Neighbor, error) {
	out := []vector.Neighbor{}
	for id, v := range f.vectors {
		out = append(out, vector.Neighbor{ID: id, Distance: 1 - vector.Cosine(vec, v)})
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

type fakeLikes struct {
	likes map[string]social.Set
}

func (f *fakeLikes) Likers(_ context.Context, movieID int, exclude string) ([]string, error) {
	out := []string{}
	for user, set := range f.likes {
		if user != exclude && set.Has(movie.GraphID(movieID)) {
			out = append(out, user)
		}
	}
	return out, nil
}

func (f *fakeLikes) LikedMovies(_ context.Context, username string) (social.Set, error) {
	if s, ok := f.likes[username]; ok {
		return s, nil
	}
	return social.Set{}, nil
}

func (f *fakeLikes) CoLikers(_ context.Context, username string) (map[string]social.Set, error) {
	out := make(map[string]social.Set)
	for user, set := range f.likes {
		if user != username {
			out[user] = set
		}
	}
	return out, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeEmbedder struct {
	err error
}

func (f fakeEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 7}, f.err
}

type testDeps struct {
	catalog  *fakeCatalog
	plots    *fakePlots
	likes    *fakeLikes
	embedder domain.Embedder
	pingErr  error
}

func defaultDeps() *testDeps {
	return &testDeps{
		catalog: &fakeCatalog{movies: map[int]movie.Detail{
			603:   {ID: 603, Title: "The Matrix", Genres: []string{"Action", "Science Fiction"}},
			604:   {ID: 604, Title: "The Matrix Reloaded", Genres: []string{"Action"}},
			27205: {ID: 27205, Title: "Inception", Genres: []string{"Science Fiction"}},
		}},
		plots: &fakePlots{vectors: map[int][]float32{
			603: {1, 0},
			604: {0.9, 0.1},
		}},
		likes: &fakeLikes{likes: map[string]social.Set{
			"alice": social.NewSet("603"),
			"bob":   social.NewSet("603", "27205"),
			"carol": social.NewSet("603"),
		}},
	}
}

func newTestRouter(t *testing.T, d *testDeps) http.Handler {
	t.Helper()
	rec := latency.Nop{}
	logger := zap.NewNop()

	catalog := cataloguc.New(d.catalog, rec, logger)
	var opts []similarityuc.Option
	if d.embedder != nil {
		opts = append(opts, similarityuc.WithEmbedder(d.embedder))
	}
	similarity := similarityuc.New(d.plots, catalog, rec, logger, opts...)
	soc := socialuc.New(d.likes, catalog, rec, logger)
	pages := pageuc.New(catalog, similarity, soc, rec)
	health := healthuc.New(map[string]healthuc.Pinger{
		"mongo": fakePinger{err: d.pingErr},
		"redis": fakePinger{},
		"neo4j": fakePinger{},
	}, nil)

	r := chi.NewRouter()
	NewServer(catalog, similarity, soc, pages, health, rec, logger).Routes(r)
	return r
}

func doGet(t *testing.T, h http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

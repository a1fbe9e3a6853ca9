package chi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinegraph/internal/domain"
	"github.com/kailas-cloud/cinegraph/internal/domain/movie"
	logpkg "github.com/kailas-cloud/cinegraph/internal/logger"
	cataloguc "github.com/kailas-cloud/cinegraph/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/cinegraph/internal/usecase/health"
	"github.com/kailas-cloud/cinegraph/internal/usecase/latency"
	pageuc "github.com/kailas-cloud/cinegraph/internal/usecase/page"
	similarityuc "github.com/kailas-cloud/cinegraph/internal/usecase/similarity"
	socialuc "github.com/kailas-cloud/cinegraph/internal/usecase/social"
)

// Error codes of the JSON error body.
const (
	codeBadRequest       = "bad_request"
	codeNotFound         = "not_found"
	codeTimeout          = "backing_store_timeout"
	codeUnavailable      = "backing_store_unavailable"
	codeNotImplemented   = "not_implemented"
	codeEmbeddingFailure = "embedding_provider_error"
	codeInternal         = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the JSON API over the query engines.
type Server struct {
	catalog       *cataloguc.Service
	similarity    *similarityuc.Service
	social        *socialuc.Service
	pages         *pageuc.Service
	health        *healthuc.Service
	latency       latency.Recorder
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	catalog *cataloguc.Service,
	similarity *similarityuc.Service,
	social *socialuc.Service,
	pages *pageuc.Service,
	health *healthuc.Service,
	rec latency.Recorder,
	logger *zap.Logger,
) *Server {
	if rec == nil {
		rec = latency.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		catalog:    catalog,
		similarity: similarity,
		social:     social,
		pages:      pages,
		health:     health,
		latency:    rec,
		logger:     logger,
	}
	// Timeout must precede unavailability: a timeout matches both.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, codeTimeout),
		sentinelHandler(domain.ErrBackingStoreUnavailable, http.StatusServiceUnavailable, codeUnavailable),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, codeNotImplemented),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingFailure),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(IdentityMiddleware())

		r.Get("/home", s.HomePage)
		r.Get("/latency", s.Latency)
		r.Get("/plots/search", s.SearchByPlot)
		r.Get("/users/{username}/recommendations", s.Recommendations)

		r.Route("/movies", func(r chi.Router) {
			r.Get("/top-rated", s.TopRated)
			r.Get("/recent", s.Recent)
			r.Get("/search", s.SearchMovies)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.MovieDetails)
				r.Get("/page", s.MoviePage)
				r.Get("/same-genre", s.SameGenre)
				r.Get("/similar", s.Similar)
				r.Get("/likers", s.Likers)
			})
		})
	})
}

// listResponse carries a movie list with the latency quantiles of the operation that produced it.
type listResponse struct {
	Items   []movie.Summary              `json:"items"`
	Metrics map[string]latency.Quantiles `json:"metrics"`
}

type searchResponse struct {
	movie.SearchResult
	Metrics map[string]latency.Quantiles `json:"metrics"`
}

type likersResponse struct {
	Items   []string                     `json:"items"`
	Metrics map[string]latency.Quantiles `json:"metrics"`
}

type detailResponse struct {
	Movie   *movie.Detail                `json:"movie"`
	Metrics map[string]latency.Quantiles `json:"metrics"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TopRated handles GET /api/movies/top-rated.
func (s *Server) TopRated(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.TopRatedMovies(r.Context())
	s.writeList(w, r, items, err, latency.OpTopRated)
}

// Recent handles GET /api/movies/recent.
func (s *Server) Recent(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.RecentMovies(r.Context())
	s.writeList(w, r, items, err, latency.OpRecent)
}

// SearchMovies handles GET /api/movies/search?query=.
func (s *Server) SearchMovies(w http.ResponseWriter, r *http.Request) {
	q, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	res, err := s.catalog.SearchMovies(r.Context(), q.Query)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		SearchResult: res,
		Metrics:      s.latency.Quantiles(r.Context(), latency.OpSearchMovies),
	})
}

// MovieDetails handles GET /api/movies/{id}.
func (s *Server) MovieDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := s.movieID(w, r)
	if !ok {
		return
	}
	d, err := s.catalog.MovieDetails(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "movie not found")
		return
	}
	writeJSON(w, http.StatusOK, detailResponse{
		Movie:   d,
		Metrics: s.latency.Quantiles(r.Context(), latency.OpMovieDetails),
	})
}

// MoviePage handles GET /api/movies/{id}/page.
func (s *Server) MoviePage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.movieID(w, r)
	if !ok {
		return
	}
	p, err := s.pages.MoviePage(r.Context(), UsernameFromContext(r.Context()), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SameGenre handles GET /api/movies/{id}/same-genre[?genre=...].
// Without genre parameters the movie's own genres are used.
func (s *Server) SameGenre(w http.ResponseWriter, r *http.Request) {
	id, ok := s.movieID(w, r)
	if !ok {
		return
	}
	genres := r.URL.Query()["genre"]
	if len(genres) == 0 {
		d, err := s.catalog.MovieDetails(r.Context(), id)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		if d == nil {
			writeError(w, http.StatusNotFound, codeNotFound, "movie not found")
			return
		}
		genres = d.Genres
	}
	items, err := s.catalog.SameGenreMovies(r.Context(), id, genres)
	s.writeList(w, r, items, err, latency.OpSameGenre)
}

// Similar handles GET /api/movies/{id}/similar.
func (s *Server) Similar(w http.ResponseWriter, r *http.Request) {
	id, ok := s.movieID(w, r)
	if !ok {
		return
	}
	items, err := s.similarity.SimilarMovies(r.Context(), id)
	s.writeList(w, r, items, err, latency.OpSimilarMovies)
}

// Likers handles GET /api/movies/{id}/likers. The caller's own like is excluded.
func (s *Server) Likers(w http.ResponseWriter, r *http.Request) {
	id, ok := s.movieID(w, r)
	if !ok {
		return
	}
	items, err := s.social.MovieLikers(r.Context(), UsernameFromContext(r.Context()), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, likersResponse{
		Items:   items,
		Metrics: s.latency.Quantiles(r.Context(), latency.OpMovieLikers),
	})
}

// SearchByPlot handles GET /api/plots/search?query=.
func (s *Server) SearchByPlot(w http.ResponseWriter, r *http.Request) {
	q, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	ctx, usage := domain.NewContextWithUsage(r.Context())
	items, err := s.similarity.SearchByPlot(ctx, q.Query)
	setEmbeddingHeaders(w, usage)
	s.writeList(w, r, items, err, latency.OpSearchByPlot)
}

// Recommendations handles GET /api/users/{username}/recommendations.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	u := usernameParam{Username: chi.URLParam(r, "username")}
	if err := validateStruct(u); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	items, err := s.social.RecommendationsForUser(r.Context(), u.Username)
	s.writeList(w, r, items, err, latency.OpRecommendations)
}

// HomePage handles GET /api/home.
func (s *Server) HomePage(w http.ResponseWriter, r *http.Request) {
	h, err := s.pages.HomePage(r.Context(), UsernameFromContext(r.Context()))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// Latency handles GET /api/latency?name=a&name=b. Without names every operation is reported.
func (s *Server) Latency(w http.ResponseWriter, r *http.Request) {
	q := latencyQuery{Names: r.URL.Query()["name"]}
	if len(q.Names) == 0 {
		q.Names = latency.Operations
	}
	if err := validateStruct(q); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.latency.Quantiles(r.Context(), q.Names...))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

func (s *Server) writeList(w http.ResponseWriter, r *http.Request, items []movie.Summary, err error, op string) {
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []movie.Summary{}
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Metrics: s.latency.Quantiles(r.Context(), op)})
}

func (s *Server) movieID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := movie.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return 0, false
	}
	return id, true
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (textQuery, bool) {
	q := textQuery{Query: r.URL.Query().Get("query")}
	if err := validateStruct(q); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return q, false
	}
	return q, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
// Invalid input keeps its reason, which never carries store details.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidInput) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrTimeout,
		domain.ErrBackingStoreUnavailable,
		domain.ErrNotImplemented,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	if errors.Is(err, context.Canceled) {
		log.Debug("request canceled", zap.Error(err))
		return
	}
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinegraph/internal/config"
	"github.com/kailas-cloud/cinegraph/internal/db"
	dbMongo "github.com/kailas-cloud/cinegraph/internal/db/mongo"
	dbNeo4j "github.com/kailas-cloud/cinegraph/internal/db/neo4j"
	dbRedis "github.com/kailas-cloud/cinegraph/internal/db/redis"
	"github.com/kailas-cloud/cinegraph/internal/domain"
	"github.com/kailas-cloud/cinegraph/internal/domain/vector"
	logpkg "github.com/kailas-cloud/cinegraph/internal/logger"
	"github.com/kailas-cloud/cinegraph/internal/metrics"
	catalogrepo "github.com/kailas-cloud/cinegraph/internal/repository/catalog"
	"github.com/kailas-cloud/cinegraph/internal/repository/embcache"
	plotrepo "github.com/kailas-cloud/cinegraph/internal/repository/plot"
	socialrepo "github.com/kailas-cloud/cinegraph/internal/repository/social"
	chiTransport "github.com/kailas-cloud/cinegraph/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/cinegraph/internal/transport/openai"
	cataloguc "github.com/kailas-cloud/cinegraph/internal/usecase/catalog"
	embeddinguc "github.com/kailas-cloud/cinegraph/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/cinegraph/internal/usecase/health"
	"github.com/kailas-cloud/cinegraph/internal/usecase/latency"
	pageuc "github.com/kailas-cloud/cinegraph/internal/usecase/page"
	similarityuc "github.com/kailas-cloud/cinegraph/internal/usecase/similarity"
	socialuc "github.com/kailas-cloud/cinegraph/internal/usecase/social"
	"github.com/kailas-cloud/cinegraph/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cinegraph API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("metrics_backend", cfg.Metrics.Backend),
		zap.Bool("plot_search", cfg.Embedding.Enabled()),
	)

	// Store metrics first: guards register breaker gauges on creation.
	metrics.RegisterStoreMetrics()
	metrics.RegisterEmbeddingMetrics()

	ctx := context.Background()

	mongoStore, err := dbMongo.NewStore(ctx, dbMongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Guard:    cfg.Breaker.Guard(cfg.Mongo.TimeoutMs),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create mongo store", zap.Error(err))
	}
	defer func() { _ = mongoStore.Close(context.Background()) }()

	redisStore, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Guard:    cfg.Breaker.Guard(cfg.Redis.TimeoutMs),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create redis store", zap.Error(err))
	}
	defer redisStore.Close()

	neo4jStore, err := dbNeo4j.NewStore(dbNeo4j.Config{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
		Guard:    cfg.Breaker.Guard(cfg.Neo4j.TimeoutMs),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create neo4j store", zap.Error(err))
	}
	defer func() { _ = neo4jStore.Close(context.Background()) }()

	// Wait for every backing store to be ready
	readiness := []struct {
		name    string
		wait    func(context.Context, time.Duration) error
		timeout int
	}{
		{dbMongo.StoreName, mongoStore.WaitForReady, cfg.Mongo.ReadinessTimeout},
		{dbRedis.StoreName, redisStore.WaitForReady, cfg.Redis.ReadinessTimeout},
		{dbNeo4j.StoreName, neo4jStore.WaitForReady, cfg.Neo4j.ReadinessTimeout},
	}
	for _, st := range readiness {
		if err := st.wait(ctx, time.Duration(st.timeout)*time.Second); err != nil {
			logger.Fatal("Backing store not ready", zap.String("store", st.name), zap.Error(err))
		}
		logger.Info("Connected to backing store", zap.String("store", st.name))
	}

	// Repositories
	catalogRepo := catalogrepo.New(mongoStore, cfg.Mongo.Collection)
	plotRepo := plotrepo.New(redisStore, plotrepo.Config{
		IndexName:      cfg.Redis.PlotIndex,
		VectorField:    cfg.Redis.VectorField,
		Dim:            vector.PlotDim,
		M:              cfg.Redis.HNSWM,
		EFConstruction: cfg.Redis.HNSWEFConstruct,
	})
	socialRepo := socialrepo.New(neo4jStore)

	if cfg.Redis.EnsureIndex {
		created, err := plotRepo.EnsureIndex(ctx)
		if err != nil {
			logger.Fatal("Failed to ensure plot index", zap.Error(err))
		}
		logger.Info("Plot index ready", zap.String("index", cfg.Redis.PlotIndex), zap.Bool("created", created))
	}

	recorder, err := buildRecorder(cfg, redisStore, logger)
	if err != nil {
		logger.Fatal("Failed to create latency recorder", zap.Error(err))
	}

	// Use case services
	catalogSvc := cataloguc.New(catalogRepo, recorder, logger)

	similarityOpts := []similarityuc.Option{similarityuc.WithK(cfg.Redis.KNN)}
	var embeddingChecker healthuc.EmbeddingChecker
	if cfg.Embedding.Enabled() {
		base, embedder := buildEmbedder(cfg.Embedding, redisStore, logger)
		similarityOpts = append(similarityOpts, similarityuc.WithEmbedder(embedder))
		embeddingChecker = newEmbeddingHealthChecker(base)
		logger.Info("Plot search enabled",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	}
	similaritySvc := similarityuc.New(plotRepo, catalogSvc, recorder, logger, similarityOpts...)
	socialSvc := socialuc.New(socialRepo, catalogSvc, recorder, logger)
	pageSvc := pageuc.New(catalogSvc, similaritySvc, socialSvc, recorder)
	healthSvc := healthuc.New(map[string]healthuc.Pinger{
		dbMongo.StoreName: mongoStore,
		dbRedis.StoreName: redisStore,
		dbNeo4j.StoreName: neo4jStore,
	}, embeddingChecker)

	server := chiTransport.NewServer(catalogSvc, similaritySvc, socialSvc, pageSvc, healthSvc, recorder, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(corsMiddleware(cfg.HTTP.CORSOrigins))
	r.Use(rateLimitMiddleware(cfg.HTTP.RateLimit, time.Minute))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildRecorder selects where latency streams live.
func buildRecorder(cfg config.Config, store latency.DigestStore, logger *zap.Logger) (latency.Recorder, error) {
	switch cfg.Metrics.Backend {
	case config.MetricsBackendMemory:
		return latency.NewSummaryRecorder(
			prometheus.DefaultRegisterer, time.Duration(cfg.Metrics.MaxAgeSec)*time.Second, logger,
		)
	default:
		return latency.NewDigestRecorder(store, cfg.Redis.LatencyKeyPrefix, logger), nil
	}
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// It returns the base provider too, for health checks.
func buildEmbedder(
	embCfg config.EmbeddingConfig,
	store db.KVStore,
	logger *zap.Logger,
) (base, embedder domain.Embedder) {
	provider := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Provider:   embCfg.Provider,
		Logger:     logger,
	})

	embedder = provider
	if embCfg.CacheTTLSec > 0 {
		embedder = embcache.New(provider, store, embcache.Config{
			Model: embCfg.Model,
			TTL:   time.Duration(embCfg.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, embCfg.Provider, embCfg.Model, vector.PlotDim, logger,
	)
	return provider, embedder
}

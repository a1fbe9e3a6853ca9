package config

import (
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/cinegraph/internal/domain/vector"
)

func validConfig() Config {
	cfg := Config{
		HTTP:  HTTPConfig{Port: 8080},
		Mongo: MongoConfig{URI: "mongodb://localhost:27017"},
		Redis: RedisConfig{Addrs: []string{"localhost:6379"}},
		Neo4j: Neo4jConfig{URI: "neo4j://localhost:7687"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"rate limit", func(c *Config) { c.HTTP.RateLimit = -1 }, "rate_limit_per_minute"},
		{"mongo uri", func(c *Config) { c.Mongo.URI = "" }, "mongo.uri"},
		{"redis addrs", func(c *Config) { c.Redis.Addrs = nil }, "redis.addrs"},
		{"neo4j uri", func(c *Config) { c.Neo4j.URI = "" }, "neo4j.uri"},
		{"failure ratio", func(c *Config) { c.Breaker.FailureRatio = 1.5 }, "failure_ratio"},
		{"metrics backend", func(c *Config) { c.Metrics.Backend = "statsd" }, `metrics.backend must be "redis" or "memory", got "statsd"`},
		{"max age", func(c *Config) { c.Metrics.MaxAgeSec = -1 }, "metrics.max_age_sec"},
		{"embedding model", func(c *Config) {
			c.Embedding.BaseURL = "https://api.openai.com/v1"
			c.Embedding.Model = "text-embedding-3-small"
		}, `embedding.model must be "avsolatorio/GIST-small-Embedding-v0"`},
		{"embedding dimensions", func(c *Config) {
			c.Embedding.BaseURL = "http://tei:8080/v1"
			c.Embedding.Dimensions = 256
		}, "embedding.dimensions"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.Redis.PlotIndex != "movie_plot_index" || cfg.Redis.VectorField != "plot_embedding" {
		t.Errorf("unexpected index defaults: %+v", cfg.Redis)
	}
	if cfg.Redis.KNN != 20 {
		t.Errorf("knn = %d, want 20", cfg.Redis.KNN)
	}
	if cfg.Mongo.Collection != "movies" || cfg.Neo4j.Database != "neo4j" {
		t.Errorf("unexpected store defaults: %+v %+v", cfg.Mongo, cfg.Neo4j)
	}
	if cfg.Metrics.Backend != MetricsBackendRedis {
		t.Errorf("metrics backend = %q", cfg.Metrics.Backend)
	}
	if cfg.Metrics.MaxAgeSec != 0 {
		t.Errorf("max age = %d, want 0 (keep every sample)", cfg.Metrics.MaxAgeSec)
	}
	if cfg.Embedding.Enabled() {
		t.Error("plot search must be disabled without a base url")
	}
	if cfg.Embedding.Model != vector.PlotModel {
		t.Errorf("embedding model = %q, want the plot index model", cfg.Embedding.Model)
	}
}

func TestValidate_PlotSearchWithIndexModel(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.BaseURL = "http://tei:8080/v1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("index model must be accepted: %v", err)
	}
}

func TestBreakerGuard(t *testing.T) {
	cfg := validConfig()
	s := cfg.Breaker.Guard(cfg.Mongo.TimeoutMs)

	if s.Timeout != 2*time.Second {
		t.Errorf("timeout = %s, want 2s", s.Timeout)
	}
	if s.OpenTimeout != 30*time.Second || s.Interval != time.Minute {
		t.Errorf("unexpected breaker windows: %+v", s)
	}
	if s.MinRequests != 10 || s.FailureRatio != 0.6 {
		t.Errorf("unexpected trip settings: %+v", s)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("CINEGRAPH_TEST_MONGO", "mongodb://mongo:27017")

	cfg, err := Parse([]byte(`
http:
  port: 8080
mongo:
  uri: ${CINEGRAPH_TEST_MONGO}
redis:
  addrs: ["${CINEGRAPH_TEST_REDIS:-localhost:6379}"]
neo4j:
  uri: neo4j://localhost:7687
metrics:
  backend: memory
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mongo.URI != "mongodb://mongo:27017" {
		t.Errorf("mongo uri = %q", cfg.Mongo.URI)
	}
	if len(cfg.Redis.Addrs) != 1 || cfg.Redis.Addrs[0] != "localhost:6379" {
		t.Errorf("redis addrs = %v", cfg.Redis.Addrs)
	}
	if cfg.Metrics.Backend != MetricsBackendMemory {
		t.Errorf("metrics backend = %q", cfg.Metrics.Backend)
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("local config must load: %v", err)
	}
	if cfg.HTTP.Port == 0 {
		t.Error("expected a port")
	}
}

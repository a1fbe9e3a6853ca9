package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/cinegraph/internal/db/guard"
	"github.com/kailas-cloud/cinegraph/internal/domain/vector"
)

// Metrics backends for operation latency quantiles.
const (
	MetricsBackendRedis  = "redis"
	MetricsBackendMemory = "memory"
)

// Config holds the cinegraph API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	Neo4j     Neo4jConfig     `yaml:"neo4j"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	RateLimit       int      `yaml:"rate_limit_per_minute"` // per client IP; 0 disables
	CORSOrigins     []string `yaml:"cors_origins"`
}

// MongoConfig holds the catalog store settings.
type MongoConfig struct {
	URI              string `yaml:"uri"`
	Database         string `yaml:"database"`
	Collection       string `yaml:"collection"`
	TimeoutMs        int    `yaml:"timeout_ms"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// RedisConfig holds the plot embedding and latency store settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TimeoutMs        int      `yaml:"timeout_ms"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	PlotIndex        string   `yaml:"plot_index"`
	VectorField      string   `yaml:"vector_field"`
	KNN              int      `yaml:"knn"`
	EnsureIndex      bool     `yaml:"ensure_index"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
	LatencyKeyPrefix string   `yaml:"latency_key_prefix"`
}

// Neo4jConfig holds the likes graph settings.
type Neo4jConfig struct {
	URI              string `yaml:"uri"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	Database         string `yaml:"database"`
	TimeoutMs        int    `yaml:"timeout_ms"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// BreakerConfig holds circuit breaker settings shared by all stores.
type BreakerConfig struct {
	MaxRequests  uint32  `yaml:"max_requests"`
	IntervalSec  int     `yaml:"interval_sec"`
	OpenSec      int     `yaml:"open_timeout_sec"`
	MinRequests  uint32  `yaml:"min_requests"`
	FailureRatio float64 `yaml:"failure_ratio"`
}

// Guard builds store guard settings with the given per-call timeout.
func (b BreakerConfig) Guard(timeoutMs int) guard.Settings {
	return guard.Settings{
		Timeout:      time.Duration(timeoutMs) * time.Millisecond,
		MaxRequests:  b.MaxRequests,
		Interval:     time.Duration(b.IntervalSec) * time.Second,
		OpenTimeout:  time.Duration(b.OpenSec) * time.Second,
		MinRequests:  b.MinRequests,
		FailureRatio: b.FailureRatio,
	}
}

// MetricsConfig selects where operation latency streams live.
type MetricsConfig struct {
	Backend   string `yaml:"backend"`     // redis (t-digest) | memory (prometheus summary)
	MaxAgeSec int    `yaml:"max_age_sec"` // memory backend: 0 keeps every sample, >0 is a sliding window
}

// EmbeddingConfig holds the optional plot search provider: an OpenAI-compatible endpoint
// (TEI, infinity) serving the model the plot index was built with. An empty BaseURL disables plot search.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	APIKey      string `yaml:"api_key"` // optional for self-hosted servers
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`    // 0 keeps the model's native size
	CacheTTLSec int    `yaml:"cache_ttl_sec"` // 0 disables the query embedding cache
}

// Enabled reports whether plot search is configured.
func (e EmbeddingConfig) Enabled() bool { return e.BaseURL != "" }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data, decodes it and applies defaults and validation.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Mongo.Database == "" {
		c.Mongo.Database = "cinegraph"
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = "movies"
	}
	if c.Mongo.TimeoutMs <= 0 {
		c.Mongo.TimeoutMs = 2000
	}
	if c.Mongo.ReadinessTimeout <= 0 {
		c.Mongo.ReadinessTimeout = 10
	}

	if c.Redis.TimeoutMs <= 0 {
		c.Redis.TimeoutMs = 1000
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Redis.PlotIndex == "" {
		c.Redis.PlotIndex = "movie_plot_index"
	}
	if c.Redis.VectorField == "" {
		c.Redis.VectorField = "plot_embedding"
	}
	if c.Redis.KNN <= 0 {
		c.Redis.KNN = 20
	}
	if c.Redis.HNSWM <= 0 {
		c.Redis.HNSWM = 16
	}
	if c.Redis.HNSWEFConstruct <= 0 {
		c.Redis.HNSWEFConstruct = 200
	}
	if c.Redis.LatencyKeyPrefix == "" {
		c.Redis.LatencyKeyPrefix = "latency:"
	}

	if c.Neo4j.Database == "" {
		c.Neo4j.Database = "neo4j"
	}
	if c.Neo4j.TimeoutMs <= 0 {
		c.Neo4j.TimeoutMs = 3000
	}
	if c.Neo4j.ReadinessTimeout <= 0 {
		c.Neo4j.ReadinessTimeout = 20
	}

	if c.Breaker.MaxRequests == 0 {
		c.Breaker.MaxRequests = 3
	}
	if c.Breaker.IntervalSec <= 0 {
		c.Breaker.IntervalSec = 60
	}
	if c.Breaker.OpenSec <= 0 {
		c.Breaker.OpenSec = 30
	}
	if c.Breaker.MinRequests == 0 {
		c.Breaker.MinRequests = 10
	}
	if c.Breaker.FailureRatio <= 0 {
		c.Breaker.FailureRatio = 0.6
	}

	if c.Metrics.Backend == "" {
		c.Metrics.Backend = MetricsBackendRedis
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "tei"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = vector.PlotModel
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit_per_minute must not be negative, got %d", c.HTTP.RateLimit)
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri is required")
	}
	if len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required")
	}
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri is required")
	}
	if c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("breaker.failure_ratio must be in (0, 1], got %g", c.Breaker.FailureRatio)
	}
	switch c.Metrics.Backend {
	case MetricsBackendRedis, MetricsBackendMemory:
	default:
		return fmt.Errorf("metrics.backend must be %q or %q, got %q",
			MetricsBackendRedis, MetricsBackendMemory, c.Metrics.Backend)
	}
	if c.Metrics.MaxAgeSec < 0 {
		return fmt.Errorf("metrics.max_age_sec must not be negative, got %d", c.Metrics.MaxAgeSec)
	}
	if c.Embedding.Enabled() {
		if !strings.EqualFold(c.Embedding.Model, vector.PlotModel) {
			return fmt.Errorf("embedding.model must be %q, the model the plot index was built with, got %q",
				vector.PlotModel, c.Embedding.Model)
		}
		if c.Embedding.Dimensions != 0 && c.Embedding.Dimensions != vector.PlotDim {
			return fmt.Errorf("embedding.dimensions must be 0 or %d, got %d", vector.PlotDim, c.Embedding.Dimensions)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

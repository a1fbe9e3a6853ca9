// Package openai embeds plot search queries through an OpenAI-compatible embeddings endpoint
// (OpenAI itself, text-embeddings-inference, infinity).
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinegraph/internal/domain"
	"github.com/kailas-cloud/cinegraph/internal/metrics"
)

// Embedder turns plot search text into query vectors.
type Embedder struct {
	client     *openai.Client
	model      string
	dimensions int
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	// Model must be the model the plot index was built with; replies naming another model are rejected.
	Model string
	// Dimensions is sent only when positive; self-hosted servers return the native size.
	Dimensions int
	Provider   string
	Logger     *zap.Logger
}

// NewEmbedder creates an embedder for cfg.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		provider:   cfg.Provider,
		logger:     logger,
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		e.observe("error")
		return domain.EmbeddingResult{}, parseAPIError(err)
	}

	if err := e.checkReply(&resp); err != nil {
		e.logger.Warn("Rejected embedding reply",
			zap.String("provider", e.provider),
			zap.String("model", e.model),
			zap.Error(err),
		)
		e.observe("error")
		return domain.EmbeddingResult{}, err
	}

	e.observe("success")
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, e.model).Observe(time.Since(start).Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// checkReply rejects empty replies and vectors from a model other than the plot index model.
// A vector from another model has the right length but lives in a different space.
func (e *Embedder) checkReply(resp *openai.EmbeddingResponse) error {
	if len(resp.Data) == 0 {
		return fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}
	served := string(resp.Model)
	if served != "" && !sameModel(served, e.model) {
		return fmt.Errorf("provider served model %q, plot index expects %q: %w",
			served, e.model, domain.ErrEmbeddingProviderError)
	}
	return nil
}

// sameModel compares model ids case-insensitively. Servers may drop the hub namespace
// ("GIST-small-Embedding-v0" for "avsolatorio/GIST-small-Embedding-v0").
func sameModel(served, want string) bool {
	if strings.EqualFold(served, want) {
		return true
	}
	_, wantName, ok := strings.Cut(want, "/")
	return ok && strings.EqualFold(served, wantName)
}

func (e *Embedder) observe(status string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, status).Inc()
}

// HealthCheck verifies API availability via ListModels.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError maps client errors to domain.ErrEmbeddingProviderError, keeping the server's reason.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		reason := extractDetail(reqErr.Body)
		if reason == "" {
			reason = string(reqErr.Body)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, reason, domain.ErrEmbeddingProviderError)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrEmbeddingProviderError)
	}

	return fmt.Errorf("embedding request failed: %v: %w", err, domain.ErrEmbeddingProviderError)
}

// extractDetail reads the "detail" or "error" field of a JSON error body (TEI and infinity formats).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  any    `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	if msg, ok := parsed.Error.(string); ok {
		return msg
	}
	return ""
}

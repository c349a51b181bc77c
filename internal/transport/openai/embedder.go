package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/savealife-cloud/lifeline/internal/domain"
	"github.com/savealife-cloud/lifeline/internal/metrics"
)

const provider = "openai"

// Embedder is an embedding provider using the OpenAI-compatible API.
// It is the alternate to the Gemini gateway, selected via config.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		logger:     cfg.Logger,
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		wrapped := parseAPIError(err)
		metrics.GatewayRequestsTotal.WithLabelValues(metrics.OpEmbed, provider, string(e.model), "error").Inc()
		metrics.GatewayErrorsTotal.WithLabelValues(metrics.OpEmbed, provider, string(e.model), errType(wrapped)).Inc()
		return domain.EmbeddingResult{}, wrapped
	}

	if len(resp.Data) == 0 {
		metrics.GatewayRequestsTotal.WithLabelValues(metrics.OpEmbed, provider, string(e.model), "error").Inc()
		metrics.GatewayErrorsTotal.WithLabelValues(metrics.OpEmbed, provider, string(e.model), metrics.ErrTypeMalformed).Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrMalformedResponse)
	}

	if e.dimensions > 0 && len(resp.Data[0].Embedding) != e.dimensions {
		metrics.GatewayRequestsTotal.WithLabelValues(metrics.OpEmbed, provider, string(e.model), "error").Inc()
		metrics.GatewayErrorsTotal.WithLabelValues(metrics.OpEmbed, provider, string(e.model), metrics.ErrTypeMalformed).Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("embedding has %d values, want %d: %w",
			len(resp.Data[0].Embedding), e.dimensions, domain.ErrMalformedResponse)
	}

	metrics.GatewayRequestsTotal.WithLabelValues(metrics.OpEmbed, provider, string(e.model), "success").Inc()
	metrics.GatewayRequestDuration.WithLabelValues(metrics.OpEmbed, provider, string(e.model)).Observe(duration.Seconds())

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError maps an OpenAI client error onto the domain taxonomy.
// A response with an HTTP status is a rejection; anything else never reached
// the service.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail, domain.ErrUpstreamRejected)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrUpstreamRejected)
	}

	return fmt.Errorf("embedding request failed: %w: %w", err, domain.ErrUpstreamUnavailable)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

func errType(err error) string {
	if errors.Is(err, domain.ErrUpstreamRejected) {
		return metrics.ErrTypeRejected
	}
	return metrics.ErrTypeTransport
}

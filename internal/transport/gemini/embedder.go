package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/savealife-cloud/lifeline/internal/domain"
	"github.com/savealife-cloud/lifeline/internal/metrics"
)

// Embedder implements domain.Embedder over the Gemini embedContent endpoint.
type Embedder struct {
	client     *Client
	dimensions int
}

// NewEmbedder creates a Gemini embedding gateway.
// dimensions is the expected vector length; a response of any other length is
// treated as malformed since similarity search over it is undefined.
func NewEmbedder(client *Client, dimensions int) *Embedder {
	return &Embedder{client: client, dimensions: dimensions}
}

type embedRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	model := e.client.embedModel
	req := embedRequest{
		Model:   "models/" + model,
		Content: content{Parts: []part{{Text: text}}},
	}

	start := time.Now()
	var resp embedResponse
	err := e.client.post(ctx, model, "embedContent", req, &resp)
	duration := time.Since(start)

	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues(metrics.OpEmbed, provider, model, "error").Inc()
		metrics.GatewayErrorsTotal.WithLabelValues(metrics.OpEmbed, provider, model, errType(err)).Inc()
		return domain.EmbeddingResult{}, err
	}

	if len(resp.Embedding.Values) == 0 {
		metrics.GatewayRequestsTotal.WithLabelValues(metrics.OpEmbed, provider, model, "error").Inc()
		metrics.GatewayErrorsTotal.WithLabelValues(metrics.OpEmbed, provider, model, metrics.ErrTypeMalformed).Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("embedding values missing: %w", domain.ErrMalformedResponse)
	}

	if e.dimensions > 0 && len(resp.Embedding.Values) != e.dimensions {
		metrics.GatewayRequestsTotal.WithLabelValues(metrics.OpEmbed, provider, model, "error").Inc()
		metrics.GatewayErrorsTotal.WithLabelValues(metrics.OpEmbed, provider, model, metrics.ErrTypeMalformed).Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("embedding has %d values, want %d: %w",
			len(resp.Embedding.Values), e.dimensions, domain.ErrMalformedResponse)
	}

	metrics.GatewayRequestsTotal.WithLabelValues(metrics.OpEmbed, provider, model, "success").Inc()
	metrics.GatewayRequestDuration.WithLabelValues(metrics.OpEmbed, provider, model).Observe(duration.Seconds())

	return domain.EmbeddingResult{Embedding: resp.Embedding.Values}, nil
}

// HealthCheck verifies API availability by embedding a single token.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.Embed(ctx, "ping"); err != nil {
		return fmt.Errorf("embed probe: %w", err)
	}
	return nil
}

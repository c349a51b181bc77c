package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/savealife-cloud/lifeline/internal/domain"
	"github.com/savealife-cloud/lifeline/internal/metrics"
)

// Generator implements domain.Generator over the Gemini generateContent endpoint.
type Generator struct {
	client *Client
	params domain.GenerationParams
}

// NewGenerator creates a Gemini generation gateway with fixed generation
// parameters. Zero-valued params are omitted from requests so the remote
// defaults apply.
func NewGenerator(client *Client, params domain.GenerationParams) *Generator {
	return &Generator{client: client, params: params}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	TopP            *float32 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.generateModel
	req := generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: buildGenerationConfig(g.params),
	}

	start := time.Now()
	var resp generateResponse
	err := g.client.post(ctx, model, "generateContent", req, &resp)
	duration := time.Since(start)

	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues(metrics.OpGenerate, provider, model, "error").Inc()
		metrics.GatewayErrorsTotal.WithLabelValues(metrics.OpGenerate, provider, model, errType(err)).Inc()
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		metrics.GatewayRequestsTotal.WithLabelValues(metrics.OpGenerate, provider, model, "error").Inc()
		metrics.GatewayErrorsTotal.WithLabelValues(metrics.OpGenerate, provider, model, metrics.ErrTypeMalformed).Inc()
		return "", fmt.Errorf("no candidates in response: %w", domain.ErrMalformedResponse)
	}

	metrics.GatewayRequestsTotal.WithLabelValues(metrics.OpGenerate, provider, model, "success").Inc()
	metrics.GatewayRequestDuration.WithLabelValues(metrics.OpGenerate, provider, model).Observe(duration.Seconds())

	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// buildGenerationConfig converts params to the wire shape, omitting zero values.
// Returns nil when every param is zero so the field is dropped entirely.
func buildGenerationConfig(p domain.GenerationParams) *generationConfig {
	if p == (domain.GenerationParams{}) {
		return nil
	}
	cfg := &generationConfig{}
	if p.Temperature > 0 {
		cfg.Temperature = &p.Temperature
	}
	if p.TopK > 0 {
		cfg.TopK = &p.TopK
	}
	if p.TopP > 0 {
		cfg.TopP = &p.TopP
	}
	if p.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = &p.MaxOutputTokens
	}
	return cfg
}

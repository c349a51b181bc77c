package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// Generator produces free text from a prompt via a hosted model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HealthChecker verifies gateway availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage where the
// provider reports it.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// GenerationParams tunes the generation gateway. Zero values are omitted from
// the request so the remote service default applies.
type GenerationParams struct {
	Temperature     float32
	TopK            int
	TopP            float32
	MaxOutputTokens int
}

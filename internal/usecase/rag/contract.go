package rag

import (
	"context"

	"github.com/savealife-cloud/lifeline/internal/domain"
)

// SearchRepository runs vector similarity queries over a guide collection.
type SearchRepository interface {
	KNN(ctx context.Context, collection string, vector []float32, k int) ([]domain.SearchResult, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Generator produces text from a grounding prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

package domain

import (
	"fmt"
	"strings"
)

// KeyPrefix namespaces all keys written by this service.
const KeyPrefix = "lifeline:"

// DefaultVectorDim is the embedding dimensionality used when config omits one.
// Matches the embedding model served by the default gateway.
const DefaultVectorDim = 768

// Guide is a unit of retrievable knowledge: a titled text with its embedding.
type Guide struct {
	ID      string
	Title   string
	Content string
	Tags    map[string]string
	Vector  []float32
}

// Validate checks the guide against the configured vector dimensionality.
// A zero-length vector is allowed (repository embeds before write); a non-empty
// vector of the wrong length makes similarity search undefined.
func (g *Guide) Validate(vectorDim int) error {
	if strings.TrimSpace(g.Title) == "" {
		return fmt.Errorf("%w: guide title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(g.Content) == "" {
		return fmt.Errorf("%w: guide content is required", ErrInvalidInput)
	}
	if len(g.Vector) != 0 && len(g.Vector) != vectorDim {
		return fmt.Errorf("%w: got %d, want %d", ErrVectorDimMismatch, len(g.Vector), vectorDim)
	}
	return nil
}

// SearchResult is a guide projection with a relevance score.
// Score is cosine similarity mapped into [0,1]; higher is more similar.
type SearchResult struct {
	ID      string
	Title   string
	Content string
	Score   float64
}

// Answer is the orchestrator output: filtered results plus an optional summary.
// Summary is nil when no result passed the relevance threshold.
type Answer struct {
	Results []SearchResult
	Summary *string
}

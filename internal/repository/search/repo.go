package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/savealife-cloud/lifeline/internal/db"
	"github.com/savealife-cloud/lifeline/internal/domain"
)

// searcher is the consumer interface for KNN queries (ISP).
type searcher interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo runs vector similarity queries over guide collections.
type Repo struct {
	searcher searcher
}

func New(s searcher) *Repo {
	return &Repo{searcher: s}
}

// KNN returns the k nearest guides to the query vector, most similar first.
func (r *Repo) KNN(ctx context.Context, collection string, vector []float32, k int) ([]domain.SearchResult, error) {
	res, err := r.searcher.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName(collection),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"title", "__content", "__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search %s: %w", collection, err)
	}

	prefix := fmt.Sprintf("%s%s:", domain.KeyPrefix, collection)
	out := make([]domain.SearchResult, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, domain.SearchResult{
			ID:      strings.TrimPrefix(e.Key, prefix),
			Title:   e.Fields["title"],
			Content: e.Fields["__content"],
			Score:   e.Score,
		})
	}
	return out, nil
}

func indexName(collection string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, collection)
}

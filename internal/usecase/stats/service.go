package stats

import (
	"context"
	"fmt"

	"github.com/savealife-cloud/lifeline/internal/db"
	"github.com/savealife-cloud/lifeline/internal/domain"
)

// IndexReader reads FT index lifecycle state.
type IndexReader interface {
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexInfo(ctx context.Context, name string) (db.IndexInfo, error)
}

// GuideCounter counts indexed documents per collection.
type GuideCounter interface {
	Count(ctx context.Context, collection string) (int, error)
}

// CollectionStats is the per-collection snapshot returned by Collect.
type CollectionStats struct {
	Documents      int
	IndexExists    bool
	IndexQueryable bool
}

// Service reports document counts and index state for the served collections.
type Service struct {
	indexes     IndexReader
	guides      GuideCounter
	collections []string
}

func New(indexes IndexReader, guides GuideCounter, collections []string) *Service {
	return &Service{indexes: indexes, guides: guides, collections: collections}
}

// Collect gathers stats for every served collection.
func (s *Service) Collect(ctx context.Context) (map[string]CollectionStats, error) {
	out := make(map[string]CollectionStats, len(s.collections))

	for _, collection := range s.collections {
		name := fmt.Sprintf("%s%s:idx", domain.KeyPrefix, collection)

		exists, err := s.indexes.IndexExists(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("check index %s: %w", name, err)
		}

		st := CollectionStats{IndexExists: exists}
		if exists {
			info, err := s.indexes.IndexInfo(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("index info %s: %w", name, err)
			}
			st.IndexQueryable = info.Queryable

			count, err := s.guides.Count(ctx, collection)
			if err != nil {
				return nil, fmt.Errorf("count %s: %w", collection, err)
			}
			st.Documents = count
		}

		out[collection] = st
	}

	return out, nil
}

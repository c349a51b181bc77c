package guide

import (
	"context"
	"errors"
	"fmt"

	"github.com/savealife-cloud/lifeline/internal/db"
	"github.com/savealife-cloud/lifeline/internal/domain"
)

// store is the consumer interface for guide persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo persists guides as Redis hashes under the collection prefix.
type Repo struct {
	store     store
	vectorDim int
}

// New creates a guide repository. vectorDim is enforced at the store boundary.
func New(s store, vectorDim int) *Repo {
	return &Repo{store: s, vectorDim: vectorDim}
}

// Insert stores a guide. The guide must carry a vector of the configured
// dimensionality.
func (r *Repo) Insert(ctx context.Context, collection string, g *domain.Guide) error {
	if err := g.Validate(r.vectorDim); err != nil {
		return err
	}
	if len(g.Vector) == 0 {
		return fmt.Errorf("%w: got 0, want %d", domain.ErrVectorDimMismatch, r.vectorDim)
	}

	key := guideKey(collection, g.ID)
	if err := r.store.HSet(ctx, key, buildHashFields(g)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// InsertMany stores multiple guides in a single pipelined round-trip.
func (r *Repo) InsertMany(ctx context.Context, collection string, guides []domain.Guide) error {
	items := make([]db.HashSetItem, 0, len(guides))
	for i := range guides {
		g := &guides[i]
		if err := g.Validate(r.vectorDim); err != nil {
			return fmt.Errorf("guide %q: %w", g.ID, err)
		}
		if len(g.Vector) == 0 {
			return fmt.Errorf("guide %q: %w: got 0, want %d", g.ID, domain.ErrVectorDimMismatch, r.vectorDim)
		}
		items = append(items, db.HashSetItem{
			Key:    guideKey(collection, g.ID),
			Fields: buildHashFields(g),
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset multi: %w", err)
	}
	return nil
}

// Get returns a guide by ID.
func (r *Repo) Get(ctx context.Context, collection, id string) (domain.Guide, error) {
	key := guideKey(collection, id)

	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Guide{}, domain.ErrNotFound
		}
		return domain.Guide{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domain.Guide{}, domain.ErrNotFound
	}

	return parseHashFields(id, m), nil
}

// Delete removes a guide.
func (r *Repo) Delete(ctx context.Context, collection, id string) error {
	key := guideKey(collection, id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// IsEmpty reports whether the collection has no documents. Uses SCAN, not the
// FT index, so it works before the index exists.
func (r *Repo) IsEmpty(ctx context.Context, collection string) (bool, error) {
	keys, err := r.store.Scan(ctx, collectionPrefix(collection)+"*")
	if err != nil {
		return false, fmt.Errorf("scan %s: %w", collection, err)
	}
	return len(keys) == 0, nil
}

// Count returns the number of indexed documents in a collection.
func (r *Repo) Count(ctx context.Context, collection string) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName(collection), "*")
	if err != nil {
		return 0, fmt.Errorf("search count %s: %w", collection, err)
	}
	return n, nil
}

// InsertPlaceholder writes a zero-vector placeholder guide so a vector index
// can be created over an otherwise empty collection. Returns the placeholder ID.
func (r *Repo) InsertPlaceholder(ctx context.Context, collection string) (string, error) {
	g := domain.Guide{
		ID:      placeholderID,
		Title:   "placeholder",
		Content: "placeholder",
		Vector:  make([]float32, r.vectorDim),
	}
	if err := r.Insert(ctx, collection, &g); err != nil {
		return "", fmt.Errorf("insert placeholder: %w", err)
	}
	return g.ID, nil
}

const placeholderID = "__placeholder"

func guideKey(collection, id string) string {
	return collectionPrefix(collection) + id
}

func collectionPrefix(collection string) string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, collection)
}

func indexName(collection string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, collection)
}

package index

import (
	"context"

	"github.com/savealife-cloud/lifeline/internal/db"
)

// IndexStore is the storage contract for index lifecycle operations.
type IndexStore interface {
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexInfo(ctx context.Context, name string) (db.IndexInfo, error)
}

// GuideStore covers the placeholder dance over an empty collection.
type GuideStore interface {
	IsEmpty(ctx context.Context, collection string) (bool, error)
	InsertPlaceholder(ctx context.Context, collection string) (string, error)
	Delete(ctx context.Context, collection, id string) error
}

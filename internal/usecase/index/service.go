package index

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/savealife-cloud/lifeline/internal/db"
	"github.com/savealife-cloud/lifeline/internal/domain"
)

// Service provisions vector indexes for guide collections. It runs on the
// startup path only, never on a request goroutine.
type Service struct {
	indexes          IndexStore
	guides           GuideStore
	vectorDim        int
	pollInterval     time.Duration
	provisionTimeout time.Duration
	logger           *zap.Logger
}

// New creates an index lifecycle service.
func New(
	indexes IndexStore, guides GuideStore,
	vectorDim int, pollInterval, provisionTimeout time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		indexes:          indexes,
		guides:           guides,
		vectorDim:        vectorDim,
		pollInterval:     pollInterval,
		provisionTimeout: provisionTimeout,
		logger:           logger,
	}
}

// Ensure brings the collection's vector index to a queryable state.
// Idempotent: an existing index is a no-op. Over an empty collection a
// zero-vector placeholder is inserted first so FT.CREATE has a document
// shape to index, and deleted once the index is queryable.
func (s *Service) Ensure(ctx context.Context, collection string) error {
	name := indexName(collection)

	exists, err := s.indexes.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: check index %s: %w", domain.ErrIndexProvisioning, name, err)
	}
	if exists {
		s.logger.Debug("vector index already exists", zap.String("index", name))
		return nil
	}

	var placeholderID string
	empty, err := s.guides.IsEmpty(ctx, collection)
	if err != nil {
		return fmt.Errorf("%w: check collection %s: %w", domain.ErrIndexProvisioning, collection, err)
	}
	if empty {
		placeholderID, err = s.guides.InsertPlaceholder(ctx, collection)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrIndexProvisioning, err)
		}
		s.logger.Info("inserted placeholder for empty collection",
			zap.String("collection", collection))
	}

	def := &db.IndexDefinition{
		Name:        name,
		StorageType: db.StorageHash,
		Prefixes:    []string{collectionPrefix(collection)},
		Fields: []db.IndexField{
			{Name: "title", Type: db.IndexFieldText},
			{
				Name:           "__vector",
				Alias:          "vector",
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorFlat,
				VectorDim:      s.vectorDim,
				VectorDistance: db.DistanceCosine,
			},
		},
	}
	if err = s.indexes.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("%w: create index %s: %w", domain.ErrIndexProvisioning, name, err)
	}

	s.logger.Info("vector index created, waiting for it to become queryable",
		zap.String("index", name),
		zap.Int("dimensions", s.vectorDim))

	if err = s.waitQueryable(ctx, name); err != nil {
		return err
	}

	if placeholderID != "" {
		if err = s.guides.Delete(ctx, collection, placeholderID); err != nil {
			return fmt.Errorf("%w: delete placeholder: %w", domain.ErrIndexProvisioning, err)
		}
	}

	s.logger.Info("vector index ready", zap.String("index", name))
	return nil
}

// waitQueryable polls the index until it reports queryable, bounded by the
// configured provisioning timeout.
func (s *Service) waitQueryable(ctx context.Context, name string) error {
	deadline := time.Now().Add(s.provisionTimeout)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		info, err := s.indexes.IndexInfo(ctx, name)
		if err != nil {
			return fmt.Errorf("%w: poll index %s: %w", domain.ErrIndexProvisioning, name, err)
		}
		if info.Queryable {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: index %s not queryable after %s",
				domain.ErrProvisioningTimeout, name, s.provisionTimeout)
		}

		s.logger.Debug("index not queryable yet",
			zap.String("index", name),
			zap.Float64("percent_indexed", info.PercentIndexed))

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", domain.ErrIndexProvisioning, ctx.Err())
		case <-ticker.C:
		}
	}
}

func indexName(collection string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, collection)
}

func collectionPrefix(collection string) string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, collection)
}

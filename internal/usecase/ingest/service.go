package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/savealife-cloud/lifeline/internal/domain"
)

// GuideRepository persists guides.
type GuideRepository interface {
	Insert(ctx context.Context, collection string, g *domain.Guide) error
	InsertMany(ctx context.Context, collection string, guides []domain.Guide) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Service ingests guides: embeds the content and stores the guide with its
// vector so it becomes searchable immediately.
type Service struct {
	repo     GuideRepository
	embed    Embedder
	maxBatch int
	logger   *zap.Logger
}

func New(repo GuideRepository, embed Embedder, maxBatch int, logger *zap.Logger) *Service {
	return &Service{repo: repo, embed: embed, maxBatch: maxBatch, logger: logger}
}

// Insert embeds and stores a single guide, returning its generated ID.
func (s *Service) Insert(ctx context.Context, collection string, g domain.Guide) (string, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}

	embRes, err := s.embed.Embed(ctx, embeddingText(&g))
	if err != nil {
		return "", err
	}
	g.Vector = embRes.Embedding

	if err := s.repo.Insert(ctx, collection, &g); err != nil {
		return "", err
	}

	s.logger.Info("guide ingested",
		zap.String("collection", collection),
		zap.String("id", g.ID))
	return g.ID, nil
}

// InsertMany embeds and stores a batch of guides, returning their IDs in
// input order. Embedding failures abort the whole batch before any write.
func (s *Service) InsertMany(ctx context.Context, collection string, guides []domain.Guide) ([]string, error) {
	if len(guides) == 0 {
		return nil, fmt.Errorf("%w: empty batch", domain.ErrInvalidInput)
	}
	if len(guides) > s.maxBatch {
		return nil, fmt.Errorf("%w: batch size %d exceeds limit %d",
			domain.ErrInvalidInput, len(guides), s.maxBatch)
	}

	ids := make([]string, len(guides))
	for i := range guides {
		g := &guides[i]
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		ids[i] = g.ID

		embRes, err := s.embed.Embed(ctx, embeddingText(g))
		if err != nil {
			return nil, fmt.Errorf("guide %d: %w", i, err)
		}
		g.Vector = embRes.Embedding
	}

	if err := s.repo.InsertMany(ctx, collection, guides); err != nil {
		return nil, err
	}

	s.logger.Info("guide batch ingested",
		zap.String("collection", collection),
		zap.Int("count", len(guides)))
	return ids, nil
}

// embeddingText is what gets vectorized: title and content together, matching
// what the search prompt later shows to the generation model.
func embeddingText(g *domain.Guide) string {
	return g.Title + "\n" + g.Content
}

// Package lifeline provides an embedded client for the SaveALife
// retrieval pipeline: vector search over guide collections backed by
// Redis, with Gemini or OpenAI gateways for embeddings and generation.
//
// The client wires the same services the HTTP server runs, without the
// transport layer, so batch jobs and internal tools can ingest and
// query guides directly.
package lifeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/savealife-cloud/lifeline/internal/config"
	dbRedis "github.com/savealife-cloud/lifeline/internal/db/redis"
	"github.com/savealife-cloud/lifeline/internal/domain"
	guiderepo "github.com/savealife-cloud/lifeline/internal/repository/guide"
	searchrepo "github.com/savealife-cloud/lifeline/internal/repository/search"
	"github.com/savealife-cloud/lifeline/internal/transport/gemini"
	openaiEmb "github.com/savealife-cloud/lifeline/internal/transport/openai"
	indexuc "github.com/savealife-cloud/lifeline/internal/usecase/index"
	ingestuc "github.com/savealife-cloud/lifeline/internal/usecase/ingest"
	raguc "github.com/savealife-cloud/lifeline/internal/usecase/rag"
	recommenduc "github.com/savealife-cloud/lifeline/internal/usecase/recommend"
	statsuc "github.com/savealife-cloud/lifeline/internal/usecase/stats"
)

const defaultReadinessTimeout = 10 * time.Second

// Answer is the result of a retrieval query: the matching guides and,
// when generation succeeds, a grounded summary.
type Answer = domain.Answer

// Guide is a document to ingest into a collection.
type Guide = domain.Guide

// Asset describes a monitored transport unit for recommendation queries.
type Asset = domain.Asset

// Alert is a recent incident attached to an asset.
type Alert = domain.Alert

// CollectionStats reports per-collection document and index state.
type CollectionStats = statsuc.CollectionStats

// Client is the lifeline SDK entry point.
type Client struct {
	store     *dbRedis.Store
	indexSvc  *indexuc.Service
	guides    *raguc.Service
	advisor   *raguc.Service
	recommend *recommenduc.Service
	ingest    *ingestuc.Service
	stats     *statsuc.Service
}

// New creates a Client and connects to the database. The database must
// become reachable within the readiness timeout; index provisioning is
// deferred to EnsureIndexes so callers control when it runs.
func New(opts ...Option) (*Client, error) {
	cfg := config.Config{}
	cfg.ApplyDefaults()

	co := &clientOptions{cfg: &cfg, logger: zap.NewNop()}
	for _, o := range opts {
		o(co)
	}

	if len(cfg.Database.Addrs) == 0 {
		return nil, errors.New("lifeline: database address required (use WithRedis)")
	}
	// Embedded clients have no HTTP listener, so full config validation
	// does not apply; check only the fields the pipeline depends on.
	switch cfg.Gateway.EmbeddingProvider {
	case "gemini", "openai":
	default:
		return nil, fmt.Errorf("lifeline: unknown embedding provider %q", cfg.Gateway.EmbeddingProvider)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("lifeline: create store: %w", err)
	}

	if err := store.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("lifeline: database not ready: %w", err)
	}

	return wireClient(store, co), nil
}

func wireClient(store *dbRedis.Store, co *clientOptions) *Client {
	cfg := co.cfg
	logger := co.logger

	geminiClient := gemini.NewClient(&gemini.Config{
		APIKey:        cfg.Gateway.Gemini.APIKey,
		BaseURL:       cfg.Gateway.Gemini.BaseURL,
		EmbedModel:    cfg.Gateway.Gemini.EmbedModel,
		GenerateModel: cfg.Gateway.Gemini.GenerateModel,
		Timeout:       time.Duration(cfg.Gateway.Gemini.TimeoutSec) * time.Second,
		Logger:        logger,
	})

	var embedder domain.Embedder
	switch cfg.Gateway.EmbeddingProvider {
	case "openai":
		embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Gateway.OpenAI.APIKey,
			BaseURL:    cfg.Gateway.OpenAI.BaseURL,
			Model:      cfg.Gateway.OpenAI.Model,
			Dimensions: cfg.Index.VectorDim,
			Logger:     logger,
		})
	default:
		embedder = gemini.NewEmbedder(geminiClient, cfg.Index.VectorDim)
	}

	generator := gemini.NewGenerator(geminiClient, domain.GenerationParams{
		Temperature:     cfg.Gateway.Generation.Temperature,
		TopK:            cfg.Gateway.Generation.TopK,
		TopP:            cfg.Gateway.Generation.TopP,
		MaxOutputTokens: cfg.Gateway.Generation.MaxOutputTokens,
	})

	guideRepo := guiderepo.New(store, cfg.Index.VectorDim)
	searchRepo := searchrepo.New(store)

	collections := []string{cfg.RAG.Guides.Collection, cfg.RAG.Advisor.Collection}

	return &Client{
		store: store,
		indexSvc: indexuc.New(
			store, guideRepo,
			cfg.Index.VectorDim,
			time.Duration(cfg.Index.PollIntervalSec)*time.Second,
			time.Duration(cfg.Index.ProvisionTimeoutSec)*time.Second,
			logger,
		),
		guides: raguc.New(searchRepo, embedder, generator, raguc.Options{
			Collection: cfg.RAG.Guides.Collection,
			Subject:    "repair guides",
			MinScore:   cfg.RAG.Guides.MinScore,
			Limit:      cfg.RAG.Guides.Limit,
			Policy:     raguc.PolicyFail,
		}, logger),
		advisor: raguc.New(searchRepo, embedder, generator, raguc.Options{
			Collection: cfg.RAG.Advisor.Collection,
			Subject:    "best practices",
			MinScore:   cfg.RAG.Advisor.MinScore,
			Limit:      cfg.RAG.Advisor.Limit,
			Policy:     raguc.PolicyFail,
		}, logger),
		recommend: recommenduc.New(generator, logger),
		ingest:    ingestuc.New(guideRepo, embedder, cfg.Index.MaxBatchSize, logger),
		stats:     statsuc.New(store, guideRepo, collections),
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// EnsureIndexes provisions the vector index for each configured
// collection, blocking until the indexes are queryable.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	for _, collection := range []string{c.guides.Collection(), c.advisor.Collection()} {
		if err := c.indexSvc.Ensure(ctx, collection); err != nil {
			return fmt.Errorf("ensure index for %s: %w", collection, err)
		}
	}
	return nil
}

// SearchGuides answers a query against the repair guide collection.
func (c *Client) SearchGuides(ctx context.Context, query string) (Answer, error) {
	return c.guides.Answer(ctx, query)
}

// SearchAdvisor answers a query against the best-practices collection.
func (c *Client) SearchAdvisor(ctx context.Context, query string) (Answer, error) {
	return c.advisor.Answer(ctx, query)
}

// Ask returns an operational recommendation for the given question,
// optionally grounded in the state of a monitored asset.
func (c *Client) Ask(ctx context.Context, question string, asset *Asset) (string, error) {
	return c.recommend.Ask(ctx, question, asset)
}

// InsertGuide embeds and stores a single guide, returning its ID.
func (c *Client) InsertGuide(ctx context.Context, collection string, g Guide) (string, error) {
	return c.ingest.Insert(ctx, collection, g)
}

// InsertGuides embeds and stores a batch of guides atomically: an
// embedding failure aborts the batch before any write.
func (c *Client) InsertGuides(ctx context.Context, collection string, guides []Guide) ([]string, error) {
	return c.ingest.InsertMany(ctx, collection, guides)
}

// Stats reports document counts and index state per collection.
func (c *Client) Stats(ctx context.Context) (map[string]CollectionStats, error) {
	return c.stats.Collect(ctx)
}

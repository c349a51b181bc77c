package lifeline

import (
	"go.uber.org/zap"

	"github.com/savealife-cloud/lifeline/internal/config"
)

// clientOptions collects option values before wiring. Unset fields keep
// the same defaults the HTTP server uses.
type clientOptions struct {
	cfg    *config.Config
	logger *zap.Logger
}

// Option configures the Client.
type Option func(*clientOptions)

// WithRedis sets the Redis addresses to connect to.
func WithRedis(addrs ...string) Option {
	return func(o *clientOptions) {
		o.cfg.Database.Addrs = addrs
	}
}

// WithPassword sets the database password.
func WithPassword(password string) Option {
	return func(o *clientOptions) {
		o.cfg.Database.Password = password
	}
}

// WithVectorDimensions overrides the embedding vector size. It must
// match the dimensionality of the configured embedding model.
func WithVectorDimensions(dim int) Option {
	return func(o *clientOptions) {
		o.cfg.Index.VectorDim = dim
	}
}

// WithGemini sets the Gemini API key. Gemini is the default provider
// for both embeddings and generation.
func WithGemini(apiKey string) Option {
	return func(o *clientOptions) {
		o.cfg.Gateway.Gemini.APIKey = apiKey
	}
}

// WithOpenAIEmbedder switches embedding to OpenAI with the given key
// and model. Generation still goes through Gemini.
func WithOpenAIEmbedder(apiKey, model string) Option {
	return func(o *clientOptions) {
		o.cfg.Gateway.EmbeddingProvider = "openai"
		o.cfg.Gateway.OpenAI.APIKey = apiKey
		o.cfg.Gateway.OpenAI.Model = model
	}
}

// WithCollections overrides the guide and advisor collection names.
func WithCollections(guides, advisor string) Option {
	return func(o *clientOptions) {
		o.cfg.RAG.Guides.Collection = guides
		o.cfg.RAG.Advisor.Collection = advisor
	}
}

// WithMinScore sets the similarity cutoff for both search services.
func WithMinScore(score float64) Option {
	return func(o *clientOptions) {
		o.cfg.RAG.Guides.MinScore = score
		o.cfg.RAG.Advisor.MinScore = score
	}
}

// WithMaxBatchSize caps the number of guides accepted per batch insert.
func WithMaxBatchSize(n int) Option {
	return func(o *clientOptions) {
		o.cfg.Index.MaxBatchSize = n
	}
}

// WithLogger attaches a zap logger; the default discards logs.
func WithLogger(logger *zap.Logger) Option {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

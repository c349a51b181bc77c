package lifeline

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/savealife-cloud/lifeline/internal/config"
)

func applyOptions(opts ...Option) *clientOptions {
	cfg := config.Config{}
	cfg.ApplyDefaults()

	co := &clientOptions{cfg: &cfg, logger: zap.NewNop()}
	for _, o := range opts {
		o(co)
	}
	return co
}

func TestNew_RequiresAddress(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected error without database address")
	}
	if !strings.Contains(err.Error(), "database address") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOptions_Defaults(t *testing.T) {
	co := applyOptions()

	if co.cfg.Index.VectorDim != 768 {
		t.Errorf("expected 768 dims by default, got %d", co.cfg.Index.VectorDim)
	}
	if co.cfg.RAG.Guides.Collection != "machine_guides" {
		t.Errorf("unexpected guides collection %q", co.cfg.RAG.Guides.Collection)
	}
	if co.cfg.Gateway.EmbeddingProvider != "gemini" {
		t.Errorf("expected gemini provider, got %q", co.cfg.Gateway.EmbeddingProvider)
	}
}

func TestOptions_Overrides(t *testing.T) {
	co := applyOptions(
		WithRedis("redis-1:6379", "redis-2:6379"),
		WithPassword("pw"),
		WithVectorDimensions(1536),
		WithOpenAIEmbedder("sk-test", "text-embedding-3-small"),
		WithCollections("transit_guides", "route_practices"),
		WithMinScore(0.8),
		WithMaxBatchSize(25),
	)

	if len(co.cfg.Database.Addrs) != 2 || co.cfg.Database.Password != "pw" {
		t.Errorf("unexpected database config %+v", co.cfg.Database)
	}
	if co.cfg.Index.VectorDim != 1536 {
		t.Errorf("expected 1536 dims, got %d", co.cfg.Index.VectorDim)
	}
	if co.cfg.Gateway.EmbeddingProvider != "openai" {
		t.Errorf("expected openai provider, got %q", co.cfg.Gateway.EmbeddingProvider)
	}
	if co.cfg.Gateway.OpenAI.Model != "text-embedding-3-small" {
		t.Errorf("unexpected openai model %q", co.cfg.Gateway.OpenAI.Model)
	}
	if co.cfg.RAG.Guides.Collection != "transit_guides" ||
		co.cfg.RAG.Advisor.Collection != "route_practices" {
		t.Errorf("unexpected collections %+v", co.cfg.RAG)
	}
	if co.cfg.RAG.Guides.MinScore != 0.8 || co.cfg.RAG.Advisor.MinScore != 0.8 {
		t.Errorf("expected min_score 0.8 on both services, got %+v", co.cfg.RAG)
	}
	if co.cfg.Index.MaxBatchSize != 25 {
		t.Errorf("expected batch cap 25, got %d", co.cfg.Index.MaxBatchSize)
	}
}

func TestOptions_NilLoggerIgnored(t *testing.T) {
	co := applyOptions(WithLogger(nil))
	if co.logger == nil {
		t.Fatal("nil logger must not replace the default")
	}
}

package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/savealife-cloud/lifeline/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(&Config{
		APIKey:        "test-key",
		BaseURL:       srv.URL,
		EmbedModel:    "embedding-001",
		GenerateModel: "gemini-2.0-flash",
	})
	return client, srv
}

// --- Embed ---

func TestEmbed_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{0.1, 0.2, 0.3}},
		})
	})

	emb := NewEmbedder(client, 3)
	res, err := emb.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 3 {
		t.Errorf("expected 3 values, got %d", len(res.Embedding))
	}

	if gotPath != "/models/embedding-001:embedContent" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotBody["model"] != "models/embedding-001" {
		t.Errorf("unexpected model field %v", gotBody["model"])
	}
	content, _ := gotBody["content"].(map[string]any)
	parts, _ := content["parts"].([]any)
	if len(parts) != 1 {
		t.Fatalf("expected one part, got %v", content)
	}
}

func TestEmbed_WrongDimensions(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float32{0.1, 0.2}},
		})
	})

	emb := NewEmbedder(client, 3)
	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestEmbed_MissingValues(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	})

	emb := NewEmbedder(client, 3)
	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestEmbed_UpstreamRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "API key not valid"},
		})
	})

	emb := NewEmbedder(client, 3)
	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrUpstreamRejected) {
		t.Fatalf("expected ErrUpstreamRejected, got %v", err)
	}
}

func TestEmbed_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused

	client := NewClient(&Config{APIKey: "k", BaseURL: srv.URL, EmbedModel: "embedding-001"})
	emb := NewEmbedder(client, 3)

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

// --- Generate ---

func TestGenerate_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{
					"parts": []any{map[string]any{"text": "grounded answer"}},
				}},
			},
		})
	})

	gen := NewGenerator(client, domain.GenerationParams{
		Temperature:     0.2,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
	})

	got, err := gen.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "grounded answer" {
		t.Errorf("unexpected text %q", got)
	}

	if gotPath != "/models/gemini-2.0-flash:generateContent" {
		t.Errorf("unexpected path %q", gotPath)
	}
	genCfg, ok := gotBody["generationConfig"].(map[string]any)
	if !ok {
		t.Fatalf("expected generationConfig in body, got %v", gotBody)
	}
	if genCfg["topK"] != float64(40) {
		t.Errorf("unexpected topK %v", genCfg["topK"])
	}
}

func TestGenerate_NoCandidates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	})

	gen := NewGenerator(client, domain.GenerationParams{})
	_, err := gen.Generate(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestGenerate_ZeroParamsOmitConfig(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{
					"parts": []any{map[string]any{"text": "ok"}},
				}},
			},
		})
	})

	gen := NewGenerator(client, domain.GenerationParams{})
	if _, err := gen.Generate(context.Background(), "prompt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := gotBody["generationConfig"]; ok {
		t.Error("generationConfig must be omitted when all params are zero")
	}
}

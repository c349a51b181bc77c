package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/savealife-cloud/lifeline/internal/db"
	"github.com/savealife-cloud/lifeline/internal/domain"
	healthuc "github.com/savealife-cloud/lifeline/internal/usecase/health"
	ingestuc "github.com/savealife-cloud/lifeline/internal/usecase/ingest"
	raguc "github.com/savealife-cloud/lifeline/internal/usecase/rag"
	recommenduc "github.com/savealife-cloud/lifeline/internal/usecase/recommend"
	statsuc "github.com/savealife-cloud/lifeline/internal/usecase/stats"
)

// --- Mocks ---

type mockSearch struct {
	results []domain.SearchResult
	err     error
	called  bool
}

func (m *mockSearch) KNN(_ context.Context, _ string, _ []float32, _ int) ([]domain.SearchResult, error) {
	m.called = true
	return m.results, m.err
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func (m *mockEmbedder) HealthCheck(_ context.Context) error { return m.err }

type mockGenerator struct {
	text   string
	err    error
	called bool
}

func (m *mockGenerator) Generate(_ context.Context, _ string) (string, error) {
	m.called = true
	return m.text, m.err
}

type mockGuideRepo struct {
	insertErr error
}

func (m *mockGuideRepo) Insert(_ context.Context, _ string, g *domain.Guide) error {
	return m.insertErr
}

func (m *mockGuideRepo) InsertMany(_ context.Context, _ string, _ []domain.Guide) error {
	return m.insertErr
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockIndexReader struct{}

func (m *mockIndexReader) IndexExists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (m *mockIndexReader) IndexInfo(_ context.Context, _ string) (db.IndexInfo, error) {
	return db.IndexInfo{}, nil
}

type mockCounter struct{}

func (m *mockCounter) Count(_ context.Context, _ string) (int, error) { return 0, nil }

type fixture struct {
	search *mockSearch
	embed  *mockEmbedder
	gen    *mockGenerator
	router *chirouter.Mux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	search := &mockSearch{}
	embed := &mockEmbedder{vec: []float32{0.1}}
	gen := &mockGenerator{text: "summary"}

	guidesSvc := raguc.New(search, embed, gen, raguc.Options{
		Collection: "machine_guides",
		Subject:    "repair guides",
		MinScore:   0.75,
		Limit:      3,
		Policy:     raguc.PolicyFail,
	}, logger)
	advisorSvc := raguc.New(search, embed, gen, raguc.Options{
		Collection: "geo_best_practices",
		Subject:    "best practices",
		MinScore:   0.75,
		Limit:      5,
		Policy:     raguc.PolicyFail,
	}, logger)

	recommendSvc := recommenduc.New(gen, logger)
	ingestSvc := ingestuc.New(&mockGuideRepo{}, embed, 100, logger)
	statsSvc := statsuc.New(&mockIndexReader{}, &mockCounter{}, []string{"machine_guides"})
	healthSvc := healthuc.New(&mockPinger{}, embed)

	server := NewServer(guidesSvc, advisorSvc, recommendSvc, ingestSvc, ingestSvc, statsSvc, healthSvc, logger)

	r := chirouter.NewRouter()
	server.Routes(r)

	return &fixture{search: search, embed: embed, gen: gen, router: r}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return v
}

// --- Search ---

func TestSearchGuides_EmptyQuery(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/rag/search", `{"search_text": "  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	resp := decode[errorResponse](t, rec)
	if resp.Error == "" {
		t.Error("expected error message in body")
	}
	if f.embed.called || f.search.called {
		t.Error("pipeline must not run for an empty query")
	}
}

func TestSearchGuides_Success(t *testing.T) {
	f := newFixture(t)
	f.search.results = []domain.SearchResult{
		{ID: "a", Title: "A", Content: "aaa", Score: 0.92},
		{ID: "b", Title: "B", Content: "bbb", Score: 0.60},
	}

	rec := f.do(t, http.MethodPost, "/api/rag/search", `{"search_text": "cooler"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[searchResponse](t, rec)
	if resp.Count != 1 || len(resp.Results) != 1 {
		t.Fatalf("expected 1 filtered result, got %+v", resp)
	}
	if resp.Query != "cooler" {
		t.Errorf("unexpected query echo %q", resp.Query)
	}
	if resp.Summary == nil || *resp.Summary != "summary" {
		t.Errorf("unexpected summary %v", resp.Summary)
	}
}

func TestSearchGuides_NoMatchesOmitsSummary(t *testing.T) {
	f := newFixture(t)
	f.search.results = []domain.SearchResult{{ID: "a", Score: 0.2}}

	rec := f.do(t, http.MethodPost, "/api/rag/search", `{"search_text": "unrelated"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decode[searchResponse](t, rec)
	if resp.Count != 0 {
		t.Errorf("expected 0 results, got %d", resp.Count)
	}
	if resp.Summary != nil {
		t.Errorf("expected no summary, got %q", *resp.Summary)
	}
	if f.gen.called {
		t.Error("generator must not run without relevant results")
	}
}

func TestSearchGuides_UpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.embed.err = domain.ErrUpstreamUnavailable

	rec := f.do(t, http.MethodPost, "/api/rag/search", `{"search_text": "q"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if f.search.called {
		t.Error("search must not run after embedding failure")
	}
}

func TestSearchGuides_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.search.err = errors.New("connection reset")

	rec := f.do(t, http.MethodPost, "/api/rag/search", `{"search_text": "q"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	resp := decode[errorResponse](t, rec)
	if resp.Error != "internal error" {
		t.Errorf("internals must not leak, got %q", resp.Error)
	}
	if f.gen.called {
		t.Error("generator must not run after a store failure")
	}
}

func TestSearchGuides_SummarizationFailure(t *testing.T) {
	f := newFixture(t)
	f.search.results = []domain.SearchResult{{ID: "a", Score: 0.9}}
	f.gen.err = domain.ErrUpstreamRejected

	rec := f.do(t, http.MethodPost, "/api/rag/search", `{"search_text": "q"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestSearchAdvisor_Success(t *testing.T) {
	f := newFixture(t)
	f.search.results = []domain.SearchResult{{ID: "a", Title: "A", Content: "x", Score: 0.9}}

	rec := f.do(t, http.MethodPost, "/api/advisor/search", `{"search_text": "route"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

// --- Ask ---

func TestAsk_FallbackOnGenerationFailure(t *testing.T) {
	f := newFixture(t)
	f.gen.err = domain.ErrUpstreamUnavailable

	rec := f.do(t, http.MethodPost, "/api/ask",
		`{"question": "status?", "asset": {"name": "Van 1", "type": "vehicle", "status": "warning"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("ask must stay 200 on generation failure, got %d", rec.Code)
	}

	resp := decode[askResponse](t, rec)
	if resp.Response != recommenduc.FallbackResponse {
		t.Errorf("expected fallback text, got %q", resp.Response)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/ask", `{"question": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// --- Guides ---

func TestInsertGuide(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/guides",
		`{"title": "Cooler manual", "content": "check the seal"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[guideResponse](t, rec)
	if resp.ID == "" {
		t.Error("expected generated id")
	}
}

func TestInsertGuide_UnknownCollection(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/guides",
		`{"collection": "nope", "title": "t", "content": "c"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestInsertGuideBatch(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/guides/batch",
		`{"guides": [{"title": "a", "content": "aa"}, {"title": "b", "content": "bb"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[guideBatchResponse](t, rec)
	if resp.Inserted != 2 || len(resp.IDs) != 2 {
		t.Errorf("unexpected batch response %+v", resp)
	}
}

func TestInsertGuide_BadJSON(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/guides", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// --- Stats / health ---

func TestStats(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/rag/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decode[statsResponse](t, rec)
	if _, ok := resp.Collections["machine_guides"]; !ok {
		t.Errorf("expected machine_guides stats, got %+v", resp)
	}
}

func TestHealth_OK(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decode[healthResponse](t, rec)
	if resp.Status != "ok" {
		t.Errorf("unexpected status %q", resp.Status)
	}
}

func TestHealth_Degraded(t *testing.T) {
	f := newFixture(t)
	f.embed.err = domain.ErrUpstreamUnavailable

	rec := f.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

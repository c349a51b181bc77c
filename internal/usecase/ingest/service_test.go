package ingest

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/savealife-cloud/lifeline/internal/domain"
)

// --- Mocks ---

type mockRepo struct {
	insertErr     error
	insertedOne   *domain.Guide
	insertedMany  []domain.Guide
	insertManyErr error
}

func (m *mockRepo) Insert(_ context.Context, _ string, g *domain.Guide) error {
	m.insertedOne = g
	return m.insertErr
}

func (m *mockRepo) InsertMany(_ context.Context, _ string, guides []domain.Guide) error {
	m.insertedMany = guides
	return m.insertManyErr
}

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func newTestService(repo *mockRepo, embed *mockEmbedder) *Service {
	return New(repo, embed, 3, zap.NewNop())
}

// --- Tests ---

func TestInsert_EmbedsAndStores(t *testing.T) {
	repo := &mockRepo{}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := newTestService(repo, embed)

	id, err := svc.Insert(context.Background(), "machine_guides", domain.Guide{
		Title:   "Cooler manual",
		Content: "check the seal",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated ID")
	}
	if repo.insertedOne == nil {
		t.Fatal("expected repo insert")
	}
	if len(repo.insertedOne.Vector) != 2 {
		t.Errorf("stored guide missing embedding, got %v", repo.insertedOne.Vector)
	}
}

func TestInsert_KeepsProvidedID(t *testing.T) {
	repo := &mockRepo{}
	embed := &mockEmbedder{vec: []float32{0.1}}
	svc := newTestService(repo, embed)

	id, err := svc.Insert(context.Background(), "machine_guides", domain.Guide{
		ID:      "guide-7",
		Title:   "t",
		Content: "c",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "guide-7" {
		t.Errorf("expected guide-7, got %q", id)
	}
}

func TestInsert_EmbedFailurePropagates(t *testing.T) {
	repo := &mockRepo{}
	embed := &mockEmbedder{err: domain.ErrUpstreamUnavailable}
	svc := newTestService(repo, embed)

	_, err := svc.Insert(context.Background(), "machine_guides", domain.Guide{Title: "t", Content: "c"})
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if repo.insertedOne != nil {
		t.Error("nothing should be stored after embedding failure")
	}
}

func TestInsertMany_EmptyBatch(t *testing.T) {
	svc := newTestService(&mockRepo{}, &mockEmbedder{vec: []float32{0.1}})

	_, err := svc.InsertMany(context.Background(), "machine_guides", nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestInsertMany_ExceedsLimit(t *testing.T) {
	svc := newTestService(&mockRepo{}, &mockEmbedder{vec: []float32{0.1}})

	guides := make([]domain.Guide, 4) // limit is 3
	_, err := svc.InsertMany(context.Background(), "machine_guides", guides)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestInsertMany_EmbedsEveryGuide(t *testing.T) {
	repo := &mockRepo{}
	embed := &mockEmbedder{vec: []float32{0.1}}
	svc := newTestService(repo, embed)

	ids, err := svc.InsertMany(context.Background(), "machine_guides", []domain.Guide{
		{Title: "a", Content: "aa"},
		{Title: "b", Content: "bb"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
	if embed.calls != 2 {
		t.Errorf("expected 2 embed calls, got %d", embed.calls)
	}
	for i, g := range repo.insertedMany {
		if len(g.Vector) == 0 {
			t.Errorf("guide %d stored without embedding", i)
		}
	}
}

func TestInsertMany_EmbedFailureAbortsBeforeWrite(t *testing.T) {
	repo := &mockRepo{}
	embed := &mockEmbedder{err: domain.ErrUpstreamRejected}
	svc := newTestService(repo, embed)

	_, err := svc.InsertMany(context.Background(), "machine_guides", []domain.Guide{
		{Title: "a", Content: "aa"},
	})
	if !errors.Is(err, domain.ErrUpstreamRejected) {
		t.Fatalf("expected ErrUpstreamRejected, got %v", err)
	}
	if repo.insertedMany != nil {
		t.Error("batch must not be written after embedding failure")
	}
}

package index

import (
	"context"
	"errors"
	"testing"

	"github.com/docqa-cloud/docqa/internal/domain"
)

// mockEmbedder returns fixed vectors by text, or an error for failTexts.
type mockEmbedder struct {
	vectors  map[string][]float32
	failText string
	calls    int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.failText != "" && text == m.failText {
		return domain.EmbeddingResult{}, errors.New("provider down")
	}
	if v, ok := m.vectors[text]; ok {
		return domain.EmbeddingResult{Embedding: v}, nil
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
}

func chunksOf(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		out[i] = domain.Chunk{Text: t, SourceID: "doc"}
	}
	return out
}

func TestBuild_EmptyChunks(t *testing.T) {
	_, err := Build(context.Background(), nil, &mockEmbedder{})
	if !errors.Is(err, domain.ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestBuild_AllOrNothing(t *testing.T) {
	emb := &mockEmbedder{failText: "bad"}
	_, err := Build(context.Background(), chunksOf("ok", "bad", "also ok"), emb)
	if !errors.Is(err, domain.ErrIndexBuildFailed) {
		t.Fatalf("expected ErrIndexBuildFailed, got %v", err)
	}
}

func TestSearch_RanksByCosine(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0, 1, 0},
		"gamma": {0.9, 0.1, 0},
		"query": {1, 0, 0},
	}}

	ix, err := Build(context.Background(), chunksOf("alpha", "beta", "gamma"), emb)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got, err := ix.Search(context.Background(), "query", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Text != "alpha" || got[1].Text != "gamma" {
		t.Errorf("unexpected ranking: %q, %q", got[0].Text, got[1].Text)
	}
}

func TestSearch_TiesPreserveChunkOrder(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{
		"first":  {1, 0, 0},
		"second": {1, 0, 0},
		"third":  {1, 0, 0},
		"query":  {1, 0, 0},
	}}

	ix, err := Build(context.Background(), chunksOf("first", "second", "third"), emb)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got, err := ix.Search(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if got[i].Text != w {
			t.Errorf("position %d: got %q, want %q", i, got[i].Text, w)
		}
	}
}

func TestSearch_KZeroReturnsEmpty(t *testing.T) {
	emb := &mockEmbedder{}
	ix, err := Build(context.Background(), chunksOf("a", "b"), emb)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	before := emb.calls
	got, err := ix.Search(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result for k=0, got %d", len(got))
	}
	if emb.calls != before {
		t.Error("k=0 should not embed the query")
	}
}

func TestSearch_KLargerThanIndex(t *testing.T) {
	ix, err := Build(context.Background(), chunksOf("only"), &mockEmbedder{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got, err := ix.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 result, got %d", len(got))
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/docqa-cloud/docqa/internal/domain"
)

// stubRetriever echoes back its chunks regardless of the query.
type stubRetriever struct {
	chunks []domain.Chunk
}

func (r *stubRetriever) Search(_ context.Context, _ string, k int) ([]domain.Chunk, error) {
	if k <= 0 || k > len(r.chunks) {
		k = len(r.chunks)
	}
	return r.chunks[:k], nil
}

func stubBuild(_ context.Context, chunks []domain.Chunk) (domain.Retriever, error) {
	return &stubRetriever{chunks: chunks}, nil
}

func failBuild(_ context.Context, _ []domain.Chunk) (domain.Retriever, error) {
	return nil, fmt.Errorf("%w: provider down", domain.ErrIndexBuildFailed)
}

func newTestStore(t *testing.T, timeout time.Duration) *Store {
	t.Helper()
	return New(stubBuild, timeout, zap.NewNop())
}

func someChunks() []domain.Chunk {
	return []domain.Chunk{{Text: "chunk one", SourceID: "doc"}, {Text: "chunk two", SourceID: "doc"}}
}

func TestCreate_ThenResolveRoundTrip(t *testing.T) {
	s := newTestStore(t, time.Hour)

	id, err := s.Create(context.Background(), someChunks(), "report")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved := s.Resolve([]string{id})
	indices, ok := resolved[id]
	if !ok {
		t.Fatal("created session not resolvable")
	}
	if len(indices) != 1 {
		t.Fatalf("expected 1 index, got %d", len(indices))
	}

	chunks, err := indices[0].Search(context.Background(), "anything", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(chunks) != 2 || chunks[0].Text != "chunk one" {
		t.Errorf("index does not serve the original chunks: %+v", chunks)
	}
}

func TestCreate_EmptyChunks(t *testing.T) {
	s := newTestStore(t, time.Hour)

	_, err := s.Create(context.Background(), nil, "")
	if !errors.Is(err, domain.ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if s.Len() != 0 {
		t.Error("failed create must not register a session")
	}
}

func TestCreate_BuildFailureRegistersNothing(t *testing.T) {
	s := New(failBuild, time.Hour, zap.NewNop())

	_, err := s.Create(context.Background(), someChunks(), "")
	if !errors.Is(err, domain.ErrIndexBuildFailed) {
		t.Fatalf("expected ErrIndexBuildFailed, got %v", err)
	}
	if s.Len() != 0 {
		t.Error("failed build must not register a session")
	}
}

func TestResolve_MixedValidAndUnknownIDs(t *testing.T) {
	s := newTestStore(t, time.Hour)

	id, err := s.Create(context.Background(), someChunks(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved := s.Resolve([]string{id, "no-such-session", ""})
	if len(resolved) != 1 {
		t.Fatalf("expected only the valid id, got %d entries", len(resolved))
	}
	if _, ok := resolved[id]; !ok {
		t.Error("valid id missing from result")
	}
}

func TestSweep_RemovesIdleKeepsActive(t *testing.T) {
	s := newTestStore(t, time.Hour)
	base := time.Now()
	s.now = func() time.Time { return base }

	stale, err := s.Create(context.Background(), someChunks(), "stale")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fresh, err := s.Create(context.Background(), someChunks(), "fresh")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Access fresh 59 minutes in; stale stays untouched.
	s.now = func() time.Time { return base.Add(59 * time.Minute) }
	s.Resolve([]string{fresh})

	// Sweep at 61 minutes: stale is past the 1h timeout, fresh is 2m idle.
	s.now = func() time.Time { return base.Add(61 * time.Minute) }
	if n := s.Sweep(); n != 1 {
		t.Fatalf("expected 1 session swept, got %d", n)
	}

	resolved := s.Resolve([]string{stale, fresh})
	if _, ok := resolved[stale]; ok {
		t.Error("stale session survived the sweep")
	}
	if _, ok := resolved[fresh]; !ok {
		t.Error("fresh session was swept")
	}
}

func TestDelete_Idempotent(t *testing.T) {
	s := newTestStore(t, time.Hour)

	id, err := s.Create(context.Background(), someChunks(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	s.Delete(id)
	s.Delete(id)
	s.Delete("never-existed")

	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d sessions", s.Len())
	}
}

func TestCreate_ConcurrentDistinctSessions(t *testing.T) {
	s := newTestStore(t, time.Hour)
	const n = 32

	ids := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			id, err := s.Create(context.Background(), someChunks(), "")
			if err != nil {
				t.Errorf("create %d: %v", i, err)
				return
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		if id == "" {
			t.Fatal("missing session id")
		}
		if seen[id] {
			t.Fatalf("duplicate session id %s", id)
		}
		seen[id] = true
	}

	resolved := s.Resolve(ids)
	if len(resolved) != n {
		t.Errorf("expected %d resolvable sessions, got %d", n, len(resolved))
	}
}

func TestResolve_SnapshotSurvivesConcurrentSweep(t *testing.T) {
	s := newTestStore(t, time.Hour)
	base := time.Now()
	s.now = func() time.Time { return base }

	id, err := s.Create(context.Background(), someChunks(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved := s.Resolve([]string{id})

	// Expire and sweep the session after the snapshot was taken.
	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	s.Sweep()

	// The snapshot remains searchable even though the session is gone.
	chunks, err := resolved[id][0].Search(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("search on snapshot: %v", err)
	}
	if len(chunks) != 1 {
		t.Errorf("snapshot search returned %d chunks", len(chunks))
	}
}

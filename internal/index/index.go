// Package index implements per-upload nearest-neighbor retrieval over a
// fixed chunk set, using brute-force cosine similarity over embeddings.
// An index is built once per upload and never mutated; a new upload
// produces a new index.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/docqa-cloud/docqa/internal/domain"
)

// Index is an immutable retrieval structure over one document's chunks.
type Index struct {
	chunks  []domain.Chunk
	vectors [][]float32 // L2-normalized, parallel to chunks
	embed   domain.Embedder
}

var _ domain.Retriever = (*Index)(nil)

// Build embeds every chunk and constructs an index. The build is
// all-or-nothing: any embedding failure aborts with ErrIndexBuildFailed
// and no partial index is returned.
func Build(ctx context.Context, chunks []domain.Chunk, embed domain.Embedder) (*Index, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		res, err := embed.Embed(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: embed chunk %d: %w", domain.ErrIndexBuildFailed, i, err)
		}
		if len(res.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding for chunk %d", domain.ErrIndexBuildFailed, i)
		}
		vectors[i] = normalize(res.Embedding)
	}

	owned := make([]domain.Chunk, len(chunks))
	copy(owned, chunks)

	return &Index{chunks: owned, vectors: vectors, embed: embed}, nil
}

// Len reports the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Search returns at most k chunks ranked by descending cosine similarity
// to query. Ties preserve original chunk order. k <= 0 returns an empty
// result, never an error.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	if k <= 0 {
		return nil, nil
	}

	res, err := ix.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	qv := normalize(res.Embedding)

	order := make([]int, len(ix.vectors))
	scores := make([]float32, len(ix.vectors))
	for i, v := range ix.vectors {
		order[i] = i
		scores[i] = dot(v, qv)
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	out := make([]domain.Chunk, k)
	for i := 0; i < k; i++ {
		out[i] = ix.chunks[order[i]]
	}
	return out, nil
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = f * inv
	}
	return out
}

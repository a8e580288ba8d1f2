package qa

import (
	"context"

	"github.com/docqa-cloud/docqa/internal/domain"
)

// SessionStore is the session registry contract.
type SessionStore interface {
	Create(ctx context.Context, chunks []domain.Chunk, label string) (string, error)
	Resolve(ids []string) map[string][]domain.Retriever
	Sweep() int
	Delete(id string)
	Len() int
}

// Generator produces answer text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Loader turns an uploaded file into text segments.
type Loader interface {
	Load(path, filename string) ([]domain.Segment, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(path, filename string) ([]domain.Segment, error)

func (f LoaderFunc) Load(path, filename string) ([]domain.Segment, error) {
	return f(path, filename)
}

package loader

import (
	"fmt"
	"os"
	"strings"

	"github.com/docqa-cloud/docqa/internal/domain"
)

// TextLoader handles plain .txt files. Form feeds act as page breaks.
type TextLoader struct{}

func (l *TextLoader) Load(path string) ([]domain.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file: %w", err)
	}

	text := string(data)
	if !strings.Contains(text, "\f") {
		return []domain.Segment{{Text: text}}, nil
	}

	pages := strings.Split(text, "\f")
	segments := make([]domain.Segment, 0, len(pages))
	for i, page := range pages {
		segments = append(segments, domain.Segment{Text: page, Page: i + 1})
	}
	return segments, nil
}

package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docqa-cloud/docqa/internal/domain"
)

// Loader converts a document file on disk into raw text segments.
type Loader interface {
	Load(path string) ([]domain.Segment, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".html": true,
	".htm":  true,
	".pdf":  true,
	".docx": true,
}

// ForFile returns the appropriate loader for a filename.
func ForFile(filename string) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextLoader{}, nil
	case ".md", ".markdown":
		return &MarkdownLoader{}, nil
	case ".html", ".htm":
		return &HTMLLoader{}, nil
	case ".pdf":
		return &PDFLoader{}, nil
	case ".docx":
		return &DOCXLoader{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Load dispatches on the filename extension and loads the file at path.
// Empty segments are dropped; a document with no text at all yields an
// empty slice, which the caller surfaces as an empty-document error.
func Load(path, filename string) ([]domain.Segment, error) {
	l, err := ForFile(filename)
	if err != nil {
		return nil, err
	}

	segments, err := l.Load(path)
	if err != nil {
		return nil, err
	}

	out := segments[:0]
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text != "" {
			out = append(out, seg)
		}
	}
	return out, nil
}

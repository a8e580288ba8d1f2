package loader

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/docqa-cloud/docqa/internal/domain"
)

// HTMLLoader extracts visible text from HTML files.
type HTMLLoader struct{}

var skippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
	"nav":    true,
}

func (l *HTMLLoader) Load(path string) ([]domain.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open html: %w", err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				if buf.Len() > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if buf.Len() == 0 {
		return nil, nil
	}
	return []domain.Segment{{Text: buf.String()}}, nil
}

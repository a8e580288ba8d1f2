package loader

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/docqa-cloud/docqa/internal/domain"
)

// MarkdownLoader extracts plain text from Markdown using goldmark.
type MarkdownLoader struct{}

func (l *MarkdownLoader) Load(path string) ([]domain.Segment, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	var buf strings.Builder
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		t := nodeText(n, src)
		if t == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(t)
	}

	if buf.Len() == 0 {
		return nil, nil
	}
	return []domain.Segment{{Text: buf.String()}}, nil
}

// nodeText gets the text content of a goldmark AST node. Nodes with
// inline children (headings, paragraphs, emphasis) are walked so markup
// markers are stripped; leaf blocks like code blocks fall back to their
// raw source lines.
func nodeText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.HasChildren() {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Value(src))
				if t.HardLineBreak() || t.SoftLineBreak() {
					buf.WriteByte('\n')
				}
				continue
			}
			if s := nodeText(c, src); s != "" {
				if c.Type() == ast.TypeBlock && buf.Len() > 0 {
					buf.WriteByte('\n')
				}
				buf.WriteString(s)
			}
		}
	} else if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
	}
	return strings.TrimSpace(buf.String())
}

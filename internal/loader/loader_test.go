package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docqa-cloud/docqa/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIsSupportedExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"cert.pdf", true},
		{"notes.TXT", true},
		{"report.docx", true},
		{"readme.md", true},
		{"page.html", true},
		{"page.htm", true},
		{"binary.exe", false},
		{"archive.zip", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := IsSupportedExtension(tt.filename); got != tt.want {
			t.Errorf("IsSupportedExtension(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	_, err := Load("/tmp/whatever", "binary.exe")
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got: %v", err)
	}
}

func TestLoad_TextWithPageBreaks(t *testing.T) {
	path := writeFile(t, "doc.txt", "first page\fsecond part\fthird")

	segments, err := Load(path, "doc.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if segments[0].Page != 1 || segments[2].Page != 3 {
		t.Errorf("page numbers wrong: %+v", segments)
	}
	if segments[0].Text != "first page" {
		t.Errorf("segment text = %q", segments[0].Text)
	}
}

func TestLoad_DropsEmptySegments(t *testing.T) {
	path := writeFile(t, "doc.txt", "content\f   \f\fmore")

	segments, err := Load(path, "doc.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
}

func TestLoad_EmptyDocumentYieldsNoSegments(t *testing.T) {
	path := writeFile(t, "doc.txt", "   \n  ")

	segments, err := Load(path, "doc.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 0 {
		t.Fatalf("expected no segments, got %d", len(segments))
	}
}

func TestLoad_Markdown(t *testing.T) {
	path := writeFile(t, "doc.md", "# Grading\n\nThe final score is **58%** overall.\n")

	segments, err := Load(path, "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) == 0 {
		t.Fatal("expected segments")
	}
	joined := ""
	for _, s := range segments {
		joined += s.Text + " "
	}
	for _, want := range []string{"Grading", "58%"} {
		if !strings.Contains(joined, want) {
			t.Errorf("markdown text missing %q in %q", want, joined)
		}
	}
	if strings.Contains(joined, "**") || strings.Contains(joined, "#") {
		t.Errorf("markup leaked into text: %q", joined)
	}
}

func TestLoad_HTMLSkipsScriptAndStyle(t *testing.T) {
	html := `<html><head><title>t</title><style>body{}</style></head>` +
		`<body><script>var x=1;</script><p>The certificate lists 22/25 assignments.</p></body></html>`
	path := writeFile(t, "page.html", html)

	segments, err := Load(path, "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := ""
	for _, s := range segments {
		joined += s.Text + " "
	}
	if !strings.Contains(joined, "22/25") {
		t.Errorf("body text missing: %q", joined)
	}
	if strings.Contains(joined, "var x=1") || strings.Contains(joined, "body{}") {
		t.Errorf("script/style leaked: %q", joined)
	}
}

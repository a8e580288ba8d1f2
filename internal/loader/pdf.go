package loader

import (
	"fmt"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/docqa-cloud/docqa/internal/domain"
)

// PDFLoader extracts plain text from PDF files, one segment per page.
type PDFLoader struct{}

func (l *PDFLoader) Load(path string) ([]domain.Segment, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var segments []domain.Segment
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages with broken font maps are skipped rather than failing the upload.
			continue
		}
		segments = append(segments, domain.Segment{Text: text, Page: i})
	}

	return segments, nil
}

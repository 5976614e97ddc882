package extract

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// extractPDFPages opens path once and walks its logical pages in order,
// emitting one Page per logical page even if a page's text is empty
// (image-only pages are not OCR'd in this extractor). The orchestrator
// elides empty pages from indexing while still advancing its checkpoint
// past them.
func extractPDFPages(path string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]Page, 0, total)

	for n := 1; n <= total; n++ {
		page := r.Page(n)
		if page.V.IsNull() {
			pages = append(pages, Page{PageNum: n - 1, TotalPages: total, Text: ""})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// a single unparsable page does not fail the whole document;
			// it is emitted empty so the checkpoint still advances past it.
			text = ""
		}

		pages = append(pages, Page{PageNum: n - 1, TotalPages: total, Text: text})
	}

	return pages, nil
}

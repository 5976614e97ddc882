package extract

import "path/filepath"

// Page is one logical page of a paged document.
type Page struct {
	// PageNum is 0-indexed.
	PageNum int
	// TotalPages is the page count of the document this page belongs to.
	TotalPages int
	// Text is the page's extracted text; may be empty for image-only
	// pages, since this extractor does not OCR PDF pages.
	Text string
}

// Extractor turns a file path into text or a sequence of pages.
// Implementations must be synchronous and CPU-bound: no network calls,
// no goroutines of their own. Callers in Phase 1 of the orchestrator
// run many Extractor calls concurrently across a worker pool; a single
// Extractor value must therefore be safe for concurrent use.
type Extractor interface {
	// ExtractText returns the concatenated text of a flat document.
	ExtractText(path string) (string, error)

	// ExtractPages returns the ordered pages of a paged document. For
	// non-paged formats it returns a single page carrying the whole
	// document's text.
	ExtractPages(path string) ([]Page, error)

	// IsPaged reports whether path must be processed via ExtractPages.
	IsPaged(path string) bool
}

// FileExtractor is the default Extractor, dispatching on file extension
// and content sniffing per the file-type policy in doc.go.
type FileExtractor struct {
	ocr OCREngine
}

// New returns the default file-type-dispatching Extractor.
func New() *FileExtractor {
	return &FileExtractor{}
}

// IsPaged reports true only for PDF; every other recognized format is
// flat. Partitioning on this method rather than on a fixed extension
// table keeps the paged/non-paged decision local to the extractor, so
// adding a new paged format later is a one-line change here.
func (e *FileExtractor) IsPaged(path string) bool {
	return extOf(path) == "pdf"
}

func extOf(path string) string {
	ext := filepath.Ext(path)
	if len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	return lower(ext)
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

package extract

import (
	"fmt"
	"os"
)

// NewWithOCR returns a FileExtractor that delegates image text
// recognition to the given OCREngine instead of the no-op default.
func NewWithOCR(ocr OCREngine) *FileExtractor {
	return &FileExtractor{ocr: ocr}
}

func (e *FileExtractor) ocrEngine() OCREngine {
	if e.ocr == nil {
		return NoopOCREngine{}
	}
	return e.ocr
}

// ExtractText returns the concatenated text of a flat document. For PDF
// (a paged format) callers should use ExtractPages instead; ExtractText
// on a PDF still works by joining all pages with newlines, for callers
// that only need a flat blob.
func (e *FileExtractor) ExtractText(path string) (string, error) {
	ext := extOf(path)

	switch ext {
	case "pdf":
		pages, err := extractPDFPages(path)
		if err != nil {
			return "", err
		}
		text := ""
		for i, p := range pages {
			if i > 0 {
				text += "\n"
			}
			text += p.Text
		}
		return text, nil

	case "docx":
		return extractDOCX(path)

	case "xlsx", "xls":
		return extractXLSX(path)

	case "pptx", "odt", "odp":
		// No library in the dependency set supports these containers;
		// treated as the "everything else" edge case: empty text, no
		// error, so discovery still counts the file as processed.
		return "", nil

	case "html", "htm":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return extractHTMLText(data), nil

	case "png", "jpg", "jpeg", "webp", "bmp", "tiff", "tif":
		return e.extractImage(path)

	default:
		if isTextFile(path) {
			data, err := os.ReadFile(path)
			if err != nil {
				return "", err
			}
			return string(data), nil
		}
		return "", nil
	}
}

func (e *FileExtractor) extractImage(path string) (string, error) {
	ocrPath, cleanup, err := preprocessImage(path)
	if err != nil {
		return "", fmt.Errorf("preprocess image: %w", err)
	}
	defer cleanup()

	return e.ocrEngine().ExtractText(ocrPath)
}

// ExtractPages returns the ordered pages of a document. Only PDF is
// actually paged; every other format is wrapped as a single page so
// callers have one uniform entry point regardless of is_paged.
func (e *FileExtractor) ExtractPages(path string) ([]Page, error) {
	if extOf(path) == "pdf" {
		return extractPDFPages(path)
	}

	text, err := e.ExtractText(path)
	if err != nil {
		return nil, err
	}
	return []Page{{PageNum: 0, TotalPages: 1, Text: text}}, nil
}

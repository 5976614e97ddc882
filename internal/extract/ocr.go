package extract

// OCREngine is the black-box capability that turns a preprocessed image
// into text. It is deliberately not implemented by this package: the
// concrete OCR backend (a native Tesseract binding, a cloud vision API,
// a bundled model) is an external collaborator injected by the caller,
// exactly like the Embedder. FileExtractor only owns the preprocessing
// step ahead of the call (see preprocessImage).
type OCREngine interface {
	ExtractText(imagePath string) (string, error)
}

// NoopOCREngine is the default OCREngine: it returns empty text for
// every image rather than fabricating a fake recognizer. Callers that
// need real OCR inject their own OCREngine via NewWithOCR.
type NoopOCREngine struct{}

func (NoopOCREngine) ExtractText(string) (string, error) {
	return "", nil
}

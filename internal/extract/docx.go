package extract

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

const wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// extractDOCX reads a .docx file's document.xml and concatenates the
// text runs inside each paragraph, separated by newlines.
func extractDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	return textFromDocxXML(content), nil
}

func textFromDocxXML(xmlContent string) string {
	var buf strings.Builder
	decoder := xml.NewDecoder(strings.NewReader(xmlContent))

	inParagraph := false
	paragraphHasText := false

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "p" && t.Name.Space == wordprocessingNS {
				inParagraph = true
				paragraphHasText = false
			}
		case xml.EndElement:
			if t.Name.Local == "p" && t.Name.Space == wordprocessingNS {
				if inParagraph && paragraphHasText {
					buf.WriteString("\n")
				}
				inParagraph = false
			}
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text != "" {
				buf.WriteString(text)
				paragraphHasText = true
			}
		}
	}

	return buf.String()
}

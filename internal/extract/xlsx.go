package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractXLSX reads every sheet of a workbook, tab-separating cells
// within a row and labeling sheets when there is more than one, so the
// resulting text preserves enough of the original table structure to be
// useful for lexical search.
func extractXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	sheets := f.GetSheetList()

	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}

		if len(sheets) > 1 {
			fmt.Fprintf(&buf, "=== %s ===\n", sheet)
		}

		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String()), nil
}

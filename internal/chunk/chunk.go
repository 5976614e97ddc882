package chunk

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxLen is the default chunk size in characters, roughly 375
// tokens at Latin text densities. A smaller value such as 512 is
// acceptable under stricter memory budgets; both must behave
// identically for a fixed maxLen since Split is a pure function of its
// two arguments.
const DefaultMaxLen = 1500

var blankLineSplit = regexp.MustCompile(`\n[ \t]*\n[ \t\n]*`)

// Split divides text into chunks whose rune length is at most maxLen,
// preferring not to break mid-word. It chooses paragraph mode when the
// text looks like prose with a handful of substantial paragraphs, and
// falls back to character-window mode otherwise (code, logs, a single
// giant paragraph, or text with no blank-line structure at all).
//
// Split is deterministic: the same (text, maxLen) always yields the
// same chunks, so callers may pin its output in tests.
func Split(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	paragraphs := splitParagraphs(text)
	if len(paragraphs) > 1 && len(paragraphs) < len(text)/100 {
		return chunkParagraphs(paragraphs, maxLen)
	}
	return chunkCharacters(text, maxLen)
}

// splitParagraphs splits on blank-line boundaries and discards empties.
func splitParagraphs(text string) []string {
	raw := blankLineSplit.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// chunkParagraphs implements paragraph mode: paragraphs accumulate into
// a buffer separated by a blank line until the next paragraph would push
// the buffer past maxLen, at which point the buffer flushes. A single
// paragraph longer than maxLen is chunked on its own via character mode.
func chunkParagraphs(paragraphs []string, maxLen int) []string {
	var chunks []string
	var buf strings.Builder
	bufLen := 0

	flush := func() {
		if bufLen > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufLen = 0
		}
	}

	for _, p := range paragraphs {
		pLen := utf8.RuneCountInString(p)

		if bufLen > 0 && bufLen+pLen+2 > maxLen {
			flush()
		}

		if pLen > maxLen {
			flush()
			chunks = append(chunks, chunkCharacters(p, maxLen)...)
			continue
		}

		if bufLen > 0 {
			buf.WriteString("\n\n")
			bufLen += 2
		}
		buf.WriteString(p)
		bufLen += pLen
	}
	flush()

	return chunks
}

// chunkCharacters implements character mode: a sliding window of width
// maxLen over the text's Unicode scalar values. When a window would end
// mid-word, it rewinds to the nearest whitespace scalar in the back half
// of the window so chunks tend to break on word boundaries.
func chunkCharacters(text string, maxLen int) []string {
	runes := []rune(text)
	n := len(runes)
	var chunks []string

	i := 0
	for i < n {
		end := i + maxLen
		if end > n {
			end = n
		}

		if end < n {
			half := i + maxLen/2
			for j := end - 1; j >= half; j-- {
				if unicode.IsSpace(runes[j]) {
					end = j
					break
				}
			}
		}

		slice := strings.TrimSpace(string(runes[i:end]))
		if slice != "" {
			chunks = append(chunks, slice)
		}

		next := end
		for next < n && unicode.IsSpace(runes[next]) {
			next++
		}
		if next <= i {
			// no whitespace was found and the window didn't advance;
			// force progress to avoid looping forever on pathological input.
			next = i + maxLen
			if next > n {
				next = n
			}
		}
		i = next
	}

	return chunks
}

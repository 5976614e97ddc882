// Package chunk splits extracted document text into bounded-size pieces
// suitable for embedding and lexical indexing.
//
// Split selects paragraph mode or character mode depending on the shape
// of the input text, and both modes are pure functions of (text, maxLen)
// so callers (and tests) can rely on deterministic output.
package chunk

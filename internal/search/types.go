// Package search implements the query engine: semantic search over
// embeddings, lexical search over BM25 full text, and a hybrid mode
// that fuses both result lists with Reciprocal Rank Fusion.
package search

import (
	"context"
	"errors"
)

// ErrNilEmbedder is returned when constructing a semantic-capable
// engine without an embedder.
var ErrNilEmbedder = errors.New("search: embedder is required")

// ErrNilVectorStore is returned when constructing a semantic-capable
// engine without a vector store.
var ErrNilVectorStore = errors.New("search: vector store is required")

// ErrNilLexicalIndex is returned when constructing a lexical-capable
// engine without a lexical index.
var ErrNilLexicalIndex = errors.New("search: lexical index is required")

// ErrNoBackends is returned when neither a vector store nor a lexical
// index was configured.
var ErrNoBackends = errors.New("search: at least one of vector store or lexical index is required")

// Mode selects which backend(s) a query runs against.
type Mode string

const (
	ModeSemantic Mode = "semantic"
	ModeLexical  Mode = "lexical"
	ModeHybrid   Mode = "hybrid"
)

// backend ranks query results against a single index.
type backend interface {
	search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Result is a single ranked hit returned to the caller, independent of
// which backend(s) produced it.
type Result struct {
	DocID        string
	FilePath     string
	FileType     string
	ChunkIndex   int
	Snippet      string
	Score        float64
	MatchedTerms []string
}

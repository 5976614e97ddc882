package search

import (
	"context"
	"fmt"

	"github.com/nexus-search/nexus/internal/lexical"
	"github.com/nexus-search/nexus/internal/vectorstore"
)

// lexicalBackend ranks chunks by BM25 score over their content. The
// Lexical Index itself stores no snippet text, only tokenized content, so
// in pure lexical mode a snippet is only available if a Vector Store
// happens to be configured too; snippetSource is optional and nil in a
// lexical-only deployment.
type lexicalBackend struct {
	index         *lexical.Index
	snippetSource *vectorstore.Store
}

func newLexicalBackend(index *lexical.Index) (*lexicalBackend, error) {
	if index == nil {
		return nil, ErrNilLexicalIndex
	}
	return &lexicalBackend{index: index}, nil
}

func (b *lexicalBackend) search(ctx context.Context, query string, limit int) ([]Result, error) {
	hits, err := b.index.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: lexical search: %w", err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			DocID:        h.DocID,
			FilePath:     h.FilePath,
			ChunkIndex:   h.ChunkIndex,
			Score:        h.Score,
			MatchedTerms: h.MatchedTerms,
			Snippet:      b.resolveSnippet(h.DocID),
		}
	}
	return results, nil
}

// resolveSnippet opportunistically looks up a hit's snippet text from the
// Vector Store's metadata by exact doc_id, when one is attached. A pure
// lexical deployment with no vector store has no source for snippet text
// and leaves it empty.
func (b *lexicalBackend) resolveSnippet(docID string) string {
	if b.snippetSource == nil {
		return ""
	}
	for _, meta := range b.snippetSource.GetMetadata(docID) {
		if meta.Snippet != "" {
			return meta.Snippet
		}
	}
	return ""
}

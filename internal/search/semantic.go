package search

import (
	"context"
	"fmt"

	"github.com/nexus-search/nexus/internal/embed"
	"github.com/nexus-search/nexus/internal/vectorstore"
)

// semanticBackend embeds the query and ranks chunks by vector
// similarity.
type semanticBackend struct {
	embedder embed.Embedder
	store    *vectorstore.Store
}

func newSemanticBackend(embedder embed.Embedder, store *vectorstore.Store) (*semanticBackend, error) {
	if embedder == nil {
		return nil, ErrNilEmbedder
	}
	if store == nil {
		return nil, ErrNilVectorStore
	}
	return &semanticBackend{embedder: embedder, store: store}, nil
}

func (b *semanticBackend) search(ctx context.Context, query string, limit int) ([]Result, error) {
	vec, err := b.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	hits, err := b.store.Search(ctx, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("search: vector search: %w", err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			DocID:      h.DocID,
			FilePath:   h.Metadata.FilePath,
			FileType:   h.Metadata.FileType,
			ChunkIndex: h.Metadata.ChunkIndex,
			Snippet:    h.Metadata.Snippet,
			Score:      float64(h.Score),
		}
	}
	return results, nil
}

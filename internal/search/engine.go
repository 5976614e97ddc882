package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/nexus-search/nexus/internal/embed"
	"github.com/nexus-search/nexus/internal/lexical"
	"github.com/nexus-search/nexus/internal/vectorstore"
	"golang.org/x/sync/errgroup"
)

// Engine answers queries in semantic, lexical, or hybrid mode.
// Thread-safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	semantic *semanticBackend
	lexical  *lexicalBackend
	rrfK     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithEmbedderAndVectorStore enables semantic search.
func WithEmbedderAndVectorStore(embedder embed.Embedder, store *vectorstore.Store) Option {
	return func(e *Engine) {
		b, err := newSemanticBackend(embedder, store)
		if err == nil {
			e.semantic = b
		}
	}
}

// WithLexicalIndex enables lexical search.
func WithLexicalIndex(index *lexical.Index) Option {
	return func(e *Engine) {
		b, err := newLexicalBackend(index)
		if err == nil {
			e.lexical = b
		}
	}
}

// WithLexicalSnippetSource attaches a Vector Store the lexical backend can
// consult for snippet text. Pure lexical-mode hits otherwise carry no
// snippet, since the Lexical Index stores tokens, not the original text;
// this lets a deployment that also maintains a vector store opportunistically
// hydrate snippets for ModeLexical results too. No-op if WithLexicalIndex
// was not also supplied.
func WithLexicalSnippetSource(store *vectorstore.Store) Option {
	return func(e *Engine) {
		if e.lexical != nil {
			e.lexical.snippetSource = store
		}
	}
}

// WithRRFConstant overrides the default RRF smoothing constant.
func WithRRFConstant(k int) Option {
	return func(e *Engine) { e.rrfK = k }
}

// NewEngine builds an Engine from the given options. At least one of
// WithEmbedderAndVectorStore or WithLexicalIndex must succeed in
// registering a backend.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{rrfK: DefaultRRFConstant}
	for _, opt := range opts {
		opt(e)
	}
	if e.semantic == nil && e.lexical == nil {
		return nil, ErrNoBackends
	}
	return e, nil
}

// Search runs a query in the given mode and returns up to limit
// ranked results.
func (e *Engine) Search(ctx context.Context, mode Mode, query string, limit int) ([]Result, error) {
	if limit == 0 {
		return nil, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	switch mode {
	case ModeSemantic:
		if e.semantic == nil {
			return nil, ErrNilVectorStore
		}
		return e.semantic.search(ctx, query, limit)
	case ModeLexical:
		if e.lexical == nil {
			return nil, ErrNilLexicalIndex
		}
		return e.lexical.search(ctx, query, limit)
	case ModeHybrid, "":
		return e.hybridSearch(ctx, query, limit)
	default:
		return nil, fmt.Errorf("search: unknown mode %q", mode)
	}
}

// hybridSearch queries both backends concurrently and fuses the
// result lists with RRF. If only one backend is configured it is used
// directly. If a configured backend fails while the other succeeds,
// the surviving backend's results are returned rather than failing
// the whole query.
func (e *Engine) hybridSearch(ctx context.Context, query string, limit int) ([]Result, error) {
	if e.semantic == nil {
		return e.lexical.search(ctx, query, limit)
	}
	if e.lexical == nil {
		return e.semantic.search(ctx, query, limit)
	}

	fetchLimit := limit * 2
	if fetchLimit < 20 {
		fetchLimit = 20
	}

	var vectorResults, lexicalResults []Result
	var vectorErr, lexicalErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vectorResults, vectorErr = e.semantic.search(gctx, query, fetchLimit)
		return nil
	})
	g.Go(func() error {
		lexicalResults, lexicalErr = e.lexical.search(gctx, query, fetchLimit)
		return nil
	})
	_ = g.Wait()

	if vectorErr != nil && lexicalErr != nil {
		return nil, fmt.Errorf("search: both backends failed: semantic: %v, lexical: %v", vectorErr, lexicalErr)
	}
	if vectorErr != nil {
		return truncate(lexicalResults, limit), nil
	}
	if lexicalErr != nil {
		return truncate(vectorResults, limit), nil
	}

	fused := fuseRankings(vectorResults, lexicalResults, e.rrfK)
	return truncate(fused, limit), nil
}

// truncate caps results to limit. A zero limit means zero results, not
// unbounded: callers that want "no cap" pass a negative limit explicitly.
func truncate(results []Result, limit int) []Result {
	if limit == 0 {
		return nil
	}
	if limit < 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}

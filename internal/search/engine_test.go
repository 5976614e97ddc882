package search

import (
	"context"
	"testing"

	"github.com/nexus-search/nexus/internal/embed"
	"github.com/nexus-search/nexus/internal/lexical"
	"github.com/nexus-search/nexus/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEngine(t *testing.T) *Engine {
	t.Helper()

	vstore, err := vectorstore.Open(vectorstore.DefaultConfig(embed.Static768Dimensions))
	require.NoError(t, err)
	t.Cleanup(func() { vstore.Close() })

	lidx, err := lexical.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { lidx.Close() })

	embedder := embed.NewStaticEmbedder768()
	ctx := context.Background()

	text := "the quick brown fox jumps over the lazy dog"
	vec, err := embedder.Embed(ctx, text)
	require.NoError(t, err)
	require.NoError(t, vstore.Add(ctx, "doc1#0", vec, vectorstore.Metadata{
		FilePath: "fox.txt", FileType: "text", ChunkIndex: 0, Snippet: text,
	}))

	require.NoError(t, lidx.Add(ctx, lexical.Doc{
		DocID: "doc1#0", FilePath: "fox.txt", Content: text, ChunkIndex: 0,
	}))
	require.NoError(t, lidx.Commit())

	engine, err := NewEngine(
		WithEmbedderAndVectorStore(embedder, vstore),
		WithLexicalIndex(lidx),
		WithLexicalSnippetSource(vstore),
	)
	require.NoError(t, err)
	return engine
}

func TestEngine_HybridSearch_FindsDocument(t *testing.T) {
	engine := setupEngine(t)

	results, err := engine.Search(context.Background(), ModeHybrid, "quick fox", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "doc1#0", results[0].DocID)
}

func TestEngine_LexicalOnly(t *testing.T) {
	engine := setupEngine(t)

	results, err := engine.Search(context.Background(), ModeLexical, "fox", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.NotEmpty(t, results[0].MatchedTerms)
	assert.NotEmpty(t, results[0].Snippet, "lexical hit should resolve its snippet via the vector store")
}

func TestEngine_LexicalOnly_NoSnippetSourceConfigured(t *testing.T) {
	ctx := context.Background()
	lidx, err := lexical.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { lidx.Close() })

	require.NoError(t, lidx.Add(ctx, lexical.Doc{
		DocID: "doc1#0", FilePath: "fox.txt", Content: "the quick brown fox", ChunkIndex: 0,
	}))
	require.NoError(t, lidx.Commit())

	engine, err := NewEngine(WithLexicalIndex(lidx))
	require.NoError(t, err)

	results, err := engine.Search(ctx, ModeLexical, "fox", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Empty(t, results[0].Snippet)
}

func TestEngine_Search_ZeroLimitReturnsEmpty(t *testing.T) {
	engine := setupEngine(t)

	for _, mode := range []Mode{ModeHybrid, ModeLexical, ModeSemantic} {
		results, err := engine.Search(context.Background(), mode, "quick fox", 0)
		require.NoError(t, err)
		assert.Empty(t, results, "mode %s should return no results for limit=0", mode)
	}
}

func TestEngine_SemanticOnly(t *testing.T) {
	engine := setupEngine(t)

	results, err := engine.Search(context.Background(), ModeSemantic, "quick fox", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "fox.txt", results[0].FilePath)
}

func TestNewEngine_NoBackends(t *testing.T) {
	_, err := NewEngine()
	assert.ErrorIs(t, err, ErrNoBackends)
}

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-search/nexus/internal/embed"
	"github.com/nexus-search/nexus/internal/extract"
	"github.com/nexus-search/nexus/internal/index"
	"github.com/nexus-search/nexus/internal/lexical"
	"github.com/nexus-search/nexus/internal/scanner"
	"github.com/nexus-search/nexus/internal/search"
	"github.com/nexus-search/nexus/internal/state"
	"github.com/nexus-search/nexus/internal/vectorstore"
)

// Integration Tests - full flow from indexing a directory on disk to
// hybrid search over the resulting Vector Store and Lexical Index.

type testRig struct {
	indexer  *index.Indexer
	vectors  *vectorstore.Store
	lexicon  *lexical.Index
	states   *state.Manager
	embedder embed.Embedder
}

func newTestRig(t *testing.T, root string) *testRig {
	t.Helper()

	embedder := embed.NewStaticEmbedder768()
	vs, err := vectorstore.Open(vectorstore.DefaultConfig(embedder.Dimensions()))
	require.NoError(t, err)
	lex, err := lexical.Open("")
	require.NoError(t, err)
	st, err := state.Open("")
	require.NoError(t, err)
	scn, err := scanner.New()
	require.NoError(t, err)

	ix, err := index.New(index.DefaultConfig(root), index.Deps{
		Extractor: extract.New(),
		Embedder:  embedder,
		Vectors:   vs,
		Lexicon:   lex,
		States:    st,
		Scanner:   scn,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = lex.Close()
		_ = st.Close()
		_ = vs.Close()
	})

	return &testRig{indexer: ix, vectors: vs, lexicon: lex, states: st, embedder: embedder}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// TestIntegration_IndexAndSearch_FindsResults indexes a small directory
// and confirms lexical search surfaces main.go for terms in its comment.
func TestIntegration_IndexAndSearch_FindsResults(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\n// handleRequest is the main HTTP handler function\nfunc handleRequest() {}\n")
	writeFile(t, root, "util.go", "package main\n\n// formatMessage formats a message\nfunc formatMessage() {}\n")

	rig := newTestRig(t, root)
	ctx := context.Background()

	result, err := rig.indexer.Run(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 2, result.FilesIndexed)
	require.Empty(t, result.Errors)

	engine, err := search.NewEngine(
		search.WithEmbedderAndVectorStore(rig.embedder, rig.vectors),
		search.WithLexicalIndex(rig.lexicon),
	)
	require.NoError(t, err)

	results, err := engine.Search(ctx, search.ModeLexical, "handler function", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, results, "search should find results")

	foundHandler := false
	for _, r := range results {
		if filepath.Base(r.FilePath) == "main.go" {
			foundHandler = true
		}
	}
	assert.True(t, foundHandler, "should find main.go containing the handler function")
}

// TestIntegration_SearchAfterDelete_ExcludesDeleted indexes, deletes a
// file on disk, runs garbage collection, and confirms its content no
// longer surfaces in lexical search.
func TestIntegration_SearchAfterDelete_ExcludesDeleted(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	root := t.TempDir()
	writeFile(t, root, "a.txt", "Rust programming language")
	writeFile(t, root, "b.txt", "Python programming language")

	rig := newTestRig(t, root)
	ctx := context.Background()

	_, err := rig.indexer.Run(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "b.txt")))
	gcResult, err := rig.indexer.GarbageCollect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, gcResult.DeletedFiles)

	engine, err := search.NewEngine(search.WithLexicalIndex(rig.lexicon))
	require.NoError(t, err)

	results, err := engine.Search(ctx, search.ModeLexical, "Python", 10)
	require.NoError(t, err)
	assert.Empty(t, results, "deleted file's content should not appear in search results")
}

// TestIntegration_EmptyIndex_ReturnsNoResults confirms that querying a
// store with nothing indexed returns an empty result, not an error.
func TestIntegration_EmptyIndex_ReturnsNoResults(t *testing.T) {
	root := t.TempDir()
	rig := newTestRig(t, root)

	engine, err := search.NewEngine(
		search.WithEmbedderAndVectorStore(rig.embedder, rig.vectors),
		search.WithLexicalIndex(rig.lexicon),
	)
	require.NoError(t, err)

	results, err := engine.Search(context.Background(), search.ModeHybrid, "any query", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// TestIntegration_IncrementalRun_SkipsUnchangedFiles verifies the
// two-run idempotence property: a second run over an unmodified
// directory indexes nothing new.
func TestIntegration_IncrementalRun_SkipsUnchangedFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha beta gamma")
	writeFile(t, root, "b.txt", "delta epsilon zeta")

	rig := newTestRig(t, root)
	ctx := context.Background()

	first, err := rig.indexer.Run(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 2, first.FilesIndexed)

	countBefore := rig.vectors.Count()

	second, err := rig.indexer.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.FilesIndexed)
	assert.Equal(t, 2, second.FilesUnchanged)
	assert.Equal(t, countBefore, rig.vectors.Count())
}

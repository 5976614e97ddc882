package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AddAndSearch(t *testing.T) {
	store, err := Open(DefaultConfig(4))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	err = store.AddBatch(ctx,
		[]string{"doc1#0", "doc2#0"},
		[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}},
		[]Metadata{
			{DocID: "doc1#0", FilePath: "a.txt", FileType: "text", ChunkIndex: 0, Snippet: "hello"},
			{DocID: "doc2#0", FilePath: "b.txt", FileType: "text", ChunkIndex: 0, Snippet: "world"},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Count())

	results, err := store.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc1#0", results[0].DocID)
	assert.Equal(t, "a.txt", results[0].Metadata.FilePath)
}

func TestStore_AddBatch_DimensionMismatch(t *testing.T) {
	store, err := Open(DefaultConfig(4))
	require.NoError(t, err)
	defer store.Close()

	err = store.AddBatch(context.Background(),
		[]string{"doc1#0"}, [][]float32{{1, 0, 0}}, []Metadata{{}})
	require.Error(t, err)
	var mismatch ErrDimensionMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestStore_Search_EmptyStore(t *testing.T) {
	store, err := Open(DefaultConfig(4))
	require.NoError(t, err)
	defer store.Close()

	results, err := store.Search(context.Background(), []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_DeleteByIDs(t *testing.T) {
	store, err := Open(DefaultConfig(2))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Add(ctx, "doc1#0", []float32{1, 1}, Metadata{DocID: "doc1#0"}))
	require.Equal(t, 1, store.Count())

	require.NoError(t, store.DeleteByIDs([]string{"doc1#0"}))
	assert.Equal(t, 0, store.Count())

	results, err := store.Search(ctx, []float32{1, 1}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_SaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	store, err := Open(DefaultConfig(3))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Add(ctx, "doc1#0", []float32{1, 2, 3}, Metadata{FilePath: "a.txt", Snippet: "hi"}))
	require.NoError(t, store.Save(path))
	require.NoError(t, store.Close())

	loaded, err := Load(path)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, 1, loaded.Count())
	results, err := loaded.Search(ctx, []float32{1, 2, 3}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt", results[0].Metadata.FilePath)

	dims, err := Dimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 3, dims)
}

func TestDistanceToScore_L2(t *testing.T) {
	assert.InDelta(t, float32(1.0), distanceToScore(0, "l2"), 0.0001)
	assert.InDelta(t, float32(0.5), distanceToScore(1, "l2"), 0.0001)
}

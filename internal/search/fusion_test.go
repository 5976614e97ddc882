package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseRankings_ExactFormula(t *testing.T) {
	vector := []Result{{DocID: "a"}, {DocID: "b"}}
	lexical := []Result{{DocID: "a"}}

	fused := fuseRankings(vector, lexical, 60)
	require.Len(t, fused, 2)

	var a, b Result
	for _, r := range fused {
		switch r.DocID {
		case "a":
			a = r
		case "b":
			b = r
		}
	}

	expectedA := 1.0/61.0 + 1.0/61.0
	expectedB := 1.0 / 62.0
	assert.InDelta(t, expectedA, a.Score, 1e-9)
	assert.InDelta(t, expectedB, b.Score, 1e-9)
	assert.Equal(t, "a", fused[0].DocID, "document present in both lists should rank first")
}

func TestFuseRankings_TieBreakByFirstSeen(t *testing.T) {
	vector := []Result{{DocID: "only-vector"}}
	lexical := []Result{{DocID: "only-lexical"}}

	fused := fuseRankings(vector, lexical, 60)
	require.Len(t, fused, 2)
	assert.Equal(t, "only-vector", fused[0].DocID, "equal single-list scores break ties by first-observed rank")
}

func TestFuseRankings_PrefersVectorSnippet(t *testing.T) {
	vector := []Result{{DocID: "a", Snippet: "semantic snippet"}}
	lexical := []Result{{DocID: "a", MatchedTerms: []string{"term"}}}

	fused := fuseRankings(vector, lexical, 60)
	require.Len(t, fused, 1)
	assert.Equal(t, "semantic snippet", fused[0].Snippet)
	assert.Equal(t, []string{"term"}, fused[0].MatchedTerms)
}

func TestFuseRankings_EmptyLists(t *testing.T) {
	fused := fuseRankings(nil, nil, 60)
	assert.Empty(t, fused)
}

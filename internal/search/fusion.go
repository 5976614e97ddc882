package search

import "sort"

// DefaultRRFConstant is the smoothing constant k in the Reciprocal
// Rank Fusion formula 1/(k+r+1), where r is the zero-indexed rank of
// a result within its source list.
const DefaultRRFConstant = 60

// fuseRankings combines two already-ranked result lists with
// Reciprocal Rank Fusion. Each list contributes 1/(k+r+1) to a
// document's fused score for its rank r in that list; scores from
// both lists are summed for documents appearing in both. When a
// document's snippet/file metadata is present in the vector list it
// takes precedence, since semantic results carry a richer snippet
// than lexical ones track.
func fuseRankings(vectorResults, lexicalResults []Result, k int) []Result {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	type accum struct {
		result     Result
		score      float64
		firstSeen  int // lower is earlier, used for deterministic tie-break
		haveResult bool
	}

	order := 0
	scores := make(map[string]*accum)

	for rank, r := range vectorResults {
		a, ok := scores[r.DocID]
		if !ok {
			a = &accum{firstSeen: order}
			order++
			scores[r.DocID] = a
		}
		a.score += 1.0 / float64(k+rank+1)
		a.result = r
		a.haveResult = true
	}

	for rank, r := range lexicalResults {
		a, ok := scores[r.DocID]
		if !ok {
			a = &accum{firstSeen: order}
			order++
			scores[r.DocID] = a
		}
		a.score += 1.0 / float64(k+rank+1)
		if !a.haveResult {
			a.result = r
			a.haveResult = true
		} else if len(a.result.MatchedTerms) == 0 {
			a.result.MatchedTerms = r.MatchedTerms
		}
	}

	fused := make([]Result, 0, len(scores))
	for _, a := range scores {
		res := a.result
		res.Score = a.score
		fused = append(fused, res)
	}

	firstSeen := make(map[string]int, len(scores))
	for docID, a := range scores {
		firstSeen[docID] = a.firstSeen
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return firstSeen[fused[i].DocID] < firstSeen[fused[j].DocID]
	})

	return fused
}

// Package lexical provides BM25 full-text search over document chunks,
// backed by Bleve's default index mapping (word-splitting tokenizer,
// lowercase token filter). Writes are staged in a batch and only become
// visible to Search after an explicit Commit, mirroring how the vector
// and state layers buffer work across an indexing pass.
package lexical

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Doc is a single chunk as seen by the lexical index. Content is
// indexed but not stored; everything else is stored so results can be
// rendered directly.
type Doc struct {
	DocID      string
	FilePath   string
	Content    string
	ChunkIndex int
}

// storedDoc is the structure actually handed to Bleve. Content has no
// `json` struct tag exclusion trick available in Bleve's reflection
// mapping, so the document mapping itself marks the field unstored.
type storedDoc struct {
	FilePath   string `json:"file_path"`
	Content    string `json:"content"`
	ChunkIndex int    `json:"chunk_index"`
}

// Result is a single lexical search hit.
type Result struct {
	DocID        string
	Score        float64
	FilePath     string
	ChunkIndex   int
	MatchedTerms []string
}

// Index is a BM25 full-text index over chunk content.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	batch  *bleve.Batch
	closed bool
}

// Open creates or opens a Bleve index at path. An empty path creates
// an in-memory index, used by tests and dry-run search.
func Open(path string) (*Index, error) {
	mapping := buildMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(mapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("lexical: create directory: %w", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, mapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("lexical: open index: %w", err)
	}

	return &Index{index: idx, batch: idx.NewBatch()}, nil
}

// buildMapping uses Bleve's default analyzer (standard tokenizer plus
// lowercase filter) for content, and leaves file_path/chunk_index as
// stored-but-unanalyzed metadata.
func buildMapping() *bleve.IndexMapping {
	m := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = false
	contentField.Index = true
	docMapping.AddFieldMappingsAt("content", contentField)

	pathField := bleve.NewTextFieldMapping()
	pathField.Store = true
	pathField.Index = false
	docMapping.AddFieldMappingsAt("file_path", pathField)

	chunkField := bleve.NewNumericFieldMapping()
	chunkField.Store = true
	chunkField.Index = false
	docMapping.AddFieldMappingsAt("chunk_index", chunkField)

	m.DefaultMapping = docMapping
	return m
}

// Add stages a single document for indexing. It is not visible to
// Search until Commit is called.
func (idx *Index) Add(ctx context.Context, doc Doc) error {
	return idx.AddBatch(ctx, []Doc{doc})
}

// AddBatch stages multiple documents for indexing.
func (idx *Index) AddBatch(ctx context.Context, docs []Doc) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("lexical: index is closed")
	}

	for _, d := range docs {
		sd := storedDoc{FilePath: d.FilePath, Content: d.Content, ChunkIndex: d.ChunkIndex}
		if err := idx.batch.Index(d.DocID, sd); err != nil {
			return fmt.Errorf("lexical: stage document %s: %w", d.DocID, err)
		}
	}
	return nil
}

// Commit flushes staged adds and deletes to the index. Search only
// observes writes after Commit returns successfully.
func (idx *Index) Commit() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("lexical: index is closed")
	}
	if idx.batch.Size() == 0 {
		return nil
	}

	if err := idx.index.Batch(idx.batch); err != nil {
		return fmt.Errorf("lexical: commit batch: %w", err)
	}
	idx.batch = idx.index.NewBatch()
	return nil
}

// Search runs a BM25 match query over the content field. An empty or
// whitespace-only query returns no results. The query string is
// analyzed as plain text, never parsed as structured query syntax, so
// no input is rejected as malformed and there is no match-all fallback.
func (idx *Index) Search(ctx context.Context, queryStr string, limit int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, fmt.Errorf("lexical: index is closed")
	}
	if strings.TrimSpace(queryStr) == "" {
		return nil, nil
	}

	q := idx.buildQuery(queryStr)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"file_path", "chunk_index"}
	req.IncludeLocations = true

	result, err := idx.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical: search: %w", err)
	}

	out := make([]Result, 0, len(result.Hits))
	for _, hit := range result.Hits {
		r := Result{DocID: hit.ID, Score: hit.Score}
		if fp, ok := hit.Fields["file_path"].(string); ok {
			r.FilePath = fp
		}
		if ci, ok := hit.Fields["chunk_index"].(float64); ok {
			r.ChunkIndex = int(ci)
		}
		r.MatchedTerms = matchedTerms(hit)
		out = append(out, r)
	}
	return out, nil
}

func (idx *Index) buildQuery(queryStr string) query.Query {
	mq := bleve.NewMatchQuery(queryStr)
	mq.SetField("content")
	return mq
}

func matchedTerms(hit *search.DocumentMatch) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, locMap := range hit.Locations {
		for term := range locMap {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			terms = append(terms, term)
		}
	}
	return terms
}

// DeleteByIDs stages deletions. Deleted documents disappear from
// Search only after Commit.
func (idx *Index) DeleteByIDs(ids []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("lexical: index is closed")
	}
	for _, id := range ids {
		idx.batch.Delete(id)
	}
	return nil
}

// Count returns the number of committed documents in the index.
func (idx *Index) Count() (uint64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return 0, fmt.Errorf("lexical: index is closed")
	}
	return idx.index.DocCount()
}

// Close releases the underlying Bleve index. Any uncommitted writes
// are discarded.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil
	}
	idx.closed = true
	return idx.index.Close()
}

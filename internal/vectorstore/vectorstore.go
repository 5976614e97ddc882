// Package vectorstore provides approximate nearest-neighbor search over
// chunk embeddings, backed by the pure-Go coder/hnsw graph. Each vector
// carries a small metadata record (file path, file type, chunk index,
// snippet) so search results can be rendered without a second lookup.
package vectorstore

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// Metadata describes the document chunk a vector was computed from.
type Metadata struct {
	DocID      string
	FilePath   string
	FileType   string
	ChunkIndex int
	Snippet    string
}

// Result is a single hit returned from Search.
type Result struct {
	DocID    string
	Score    float32
	Distance float32
	Metadata Metadata
}

// Config controls graph construction and distance semantics.
type Config struct {
	Dimensions int
	Metric     string // "l2" (default) or "cos"
	M          int
	EfSearch   int
}

// DefaultConfig returns the spec's defaults: L2 distance over 384-dim
// vectors.
func DefaultConfig(dimensions int) Config {
	if dimensions <= 0 {
		dimensions = 384
	}
	return Config{
		Dimensions: dimensions,
		Metric:     "l2",
		M:          16,
		EfSearch:   20,
	}
}

// ErrDimensionMismatch is returned when a vector's length doesn't match
// the store's fixed dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// Store is an HNSW-backed vector index with per-vector metadata.
type Store struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config Config

	idMap    map[string]uint64 // doc_id -> internal key
	keyMap   map[uint64]string // internal key -> doc_id
	metadata map[string]Metadata
	nextKey  uint64

	closed bool
}

type persisted struct {
	IDMap    map[string]uint64
	Metadata map[string]Metadata
	NextKey  uint64
	Config   Config
}

// Open creates a vector store with the given configuration. There is no
// on-disk state until Save is called; use Load to resume from a prior
// Save.
func Open(cfg Config) (*Store, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("vectorstore: dimensions must be positive")
	}
	if cfg.Metric == "" {
		cfg.Metric = "l2"
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case "cos":
		graph.Distance = hnsw.CosineDistance
	default:
		graph.Distance = hnsw.EuclideanDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &Store{
		graph:    graph,
		config:   cfg,
		idMap:    make(map[string]uint64),
		keyMap:   make(map[uint64]string),
		metadata: make(map[string]Metadata),
	}, nil
}

// Add inserts a single vector with its metadata. Re-adding an existing
// doc_id replaces its metadata and orphans its old graph entry (lazy
// deletion, see Delete).
func (s *Store) Add(ctx context.Context, docID string, vector []float32, meta Metadata) error {
	return s.AddBatch(ctx, []string{docID}, [][]float32{vector}, []Metadata{meta})
}

// AddBatch inserts multiple vectors at once.
func (s *Store) AddBatch(ctx context.Context, docIDs []string, vectors [][]float32, metas []Metadata) error {
	if len(docIDs) == 0 {
		return nil
	}
	if len(docIDs) != len(vectors) || len(docIDs) != len(metas) {
		return fmt.Errorf("vectorstore: ids, vectors, and metadata length mismatch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vectorstore: store is closed")
	}

	for _, v := range vectors {
		if len(v) != s.config.Dimensions {
			return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(v)}
		}
	}

	for i, id := range docIDs {
		if existingKey, exists := s.idMap[id]; exists {
			delete(s.keyMap, existingKey)
			delete(s.idMap, id)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		if s.config.Metric == "cos" {
			normalizeVectorInPlace(vec)
		}

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[id] = key
		s.keyMap[key] = id
		s.metadata[id] = metas[i]
	}

	return nil
}

// Search returns the k nearest vectors to query, ranked by descending
// score. Score is 1/(1+distance) for the L2 metric.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("vectorstore: store is closed")
	}
	if len(query) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(query)}
	}
	if s.graph.Len() == 0 {
		return nil, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	if s.config.Metric == "cos" {
		normalizeVectorInPlace(q)
	}

	nodes := s.graph.Search(q, k)
	results := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		docID, ok := s.keyMap[node.Key]
		if !ok {
			continue // lazily-deleted entry
		}
		distance := s.graph.Distance(q, node.Value)
		results = append(results, Result{
			DocID:    docID,
			Distance: distance,
			Score:    distanceToScore(distance, s.config.Metric),
			Metadata: s.metadata[docID],
		})
	}

	return results, nil
}

// GetMetadata returns the metadata for doc IDs matching the given
// prefix, e.g. all chunks belonging to a file's doc_id family.
func (s *Store) GetMetadata(idPrefix string) []Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Metadata
	for id, meta := range s.metadata {
		if hasPrefix(id, idPrefix) {
			out = append(out, meta)
		}
	}
	return out
}

// DeleteByIDs removes vectors by doc_id using lazy deletion: entries
// are removed from the ID maps but remain as orphaned nodes in the
// underlying graph until the next full rebuild.
func (s *Store) DeleteByIDs(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vectorstore: store is closed")
	}

	for _, id := range ids {
		if key, exists := s.idMap[id]; exists {
			delete(s.keyMap, key)
			delete(s.idMap, id)
			delete(s.metadata, id)
		}
	}
	return nil
}

// Count returns the number of live (non-orphaned) vectors.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idMap)
}

// Save persists the graph and metadata to disk using an atomic
// temp-file-then-rename write.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("vectorstore: store is closed")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vectorstore: create directory: %w", err)
	}

	tmpIndexPath := path + ".tmp"
	f, err := os.Create(tmpIndexPath)
	if err != nil {
		return fmt.Errorf("vectorstore: create index file: %w", err)
	}
	if err := s.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmpIndexPath)
		return fmt.Errorf("vectorstore: export graph: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpIndexPath)
		return fmt.Errorf("vectorstore: close index file: %w", err)
	}
	if err := os.Rename(tmpIndexPath, path); err != nil {
		os.Remove(tmpIndexPath)
		return fmt.Errorf("vectorstore: rename index file: %w", err)
	}

	metaPath := path + ".meta"
	if err := s.saveMetadata(metaPath); err != nil {
		return fmt.Errorf("vectorstore: save metadata: %w", err)
	}
	return nil
}

func (s *Store) saveMetadata(path string) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}

	p := persisted{
		IDMap:    s.idMap,
		Metadata: s.metadata,
		NextKey:  s.nextKey,
		Config:   s.config,
	}

	enc := gob.NewEncoder(f)
	if err := enc.Encode(p); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Load restores a store previously written with Save.
func Load(path string) (*Store, error) {
	metaPath := path + ".meta"
	f, err := os.Open(metaPath)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open metadata file: %w", err)
	}
	var p persisted
	dec := gob.NewDecoder(f)
	decErr := dec.Decode(&p)
	f.Close()
	if decErr != nil {
		return nil, fmt.Errorf("vectorstore: decode metadata: %w", decErr)
	}

	s, err := Open(p.Config)
	if err != nil {
		return nil, err
	}
	s.idMap = p.IDMap
	s.metadata = p.Metadata
	s.nextKey = p.NextKey
	s.keyMap = make(map[uint64]string, len(p.IDMap))
	for id, key := range p.IDMap {
		s.keyMap[key] = id
	}

	indexFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open index file: %w", err)
	}
	defer indexFile.Close()

	reader := bufio.NewReader(indexFile)
	if err := s.graph.Import(reader); err != nil {
		return nil, fmt.Errorf("vectorstore: import graph: %w", err)
	}

	return s, nil
}

// Dimensions reads the vector dimensionality recorded in a saved
// store's metadata without loading the whole graph. Returns 0 if the
// store has never been saved.
func Dimensions(path string) (int, error) {
	metaPath := path + ".meta"
	f, err := os.Open(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("vectorstore: open metadata file: %w", err)
	}
	defer f.Close()

	var p persisted
	if err := gob.NewDecoder(f).Decode(&p); err != nil {
		return 0, fmt.Errorf("vectorstore: decode metadata: %w", err)
	}
	return p.Config.Dimensions, nil
}

// Close releases in-memory resources. The store cannot be used after
// Close; call Save first if persistence is needed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	slog.Debug("vectorstore_closed")
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

// distanceToScore converts a raw distance to a bounded similarity
// score. L2 distance has no fixed upper bound, so it is mapped through
// 1/(1+d) rather than a linear rescale.
func distanceToScore(distance float32, metric string) float32 {
	switch metric {
	case "cos":
		return 1.0 - distance/2.0
	default:
		return 1.0 / (1.0 + distance)
	}
}

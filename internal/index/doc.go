// Package index implements the indexing orchestrator: the state
// machine that discovers files under a root, decides which need
// (re)indexing, drives extraction, chunking, embedding and storage in
// two phases (parallel CPU-bound extraction, then a serialized
// embed-and-store pass), checkpoints paged documents page by page, and
// garbage-collects embeddings for files deleted or modified on disk.
//
// Indexer composes the Extractor, Chunker, Embedder, Vector Store,
// Lexical Index and State Manager behind references; it holds no
// inheritance relationship with any of them and can be exercised with
// fakes of each by swapping the values passed to New.
package index

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nexus-search/nexus/internal/config"
	"github.com/nexus-search/nexus/internal/embed"
	"github.com/nexus-search/nexus/internal/extract"
	"github.com/nexus-search/nexus/internal/index"
	"github.com/nexus-search/nexus/internal/lexical"
	"github.com/nexus-search/nexus/internal/scanner"
	"github.com/nexus-search/nexus/internal/state"
	"github.com/nexus-search/nexus/internal/vectorstore"
)

// stores bundles every collaborator a command needs against one data
// directory, along with the paths Run/GarbageCollect must persist to.
type stores struct {
	cfg      *config.Config
	dataDir  string
	embedder embed.Embedder
	vectors  *vectorstore.Store
	lexicon  *lexical.Index
	states   *state.Manager

	vectorStorePath string
	lexicalPath     string
	statePath       string
}

// openStores wires the embedder, Vector Store, Lexical Index and State
// Manager backing dataDir, creating them on first use. offline forces
// the deterministic static embedder, skipping any network-backed
// provider.
func openStores(ctx context.Context, cfg *config.Config, dataDir string, offline bool) (*stores, error) {
	var embedder embed.Embedder
	var err error
	if offline {
		embedder = embed.NewStaticEmbedder768()
	} else {
		embedder, err = embed.NewEmbedder(ctx, embed.ProviderOllama, "")
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
	}

	vectorStorePath := filepath.Join(dataDir, "vectors.hnsw")
	dims, dimErr := vectorstore.Dimensions(vectorStorePath)
	if dimErr != nil {
		dims = embedder.Dimensions()
	}
	vectors, err := vectorstore.Open(vectorstore.DefaultConfig(dims))
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	// A missing or not-yet-created store is expected on first run; Load
	// returning an error in that case just leaves vectors empty.
	_ = vectors.Load(vectorStorePath)

	lexicalPath := filepath.Join(dataDir, "lexical.bleve")
	lexicon, err := lexical.Open(lexicalPath)
	if err != nil {
		_ = vectors.Close()
		_ = embedder.Close()
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	statePath := filepath.Join(dataDir, "state.db")
	states, err := state.Open(statePath)
	if err != nil {
		_ = lexicon.Close()
		_ = vectors.Close()
		_ = embedder.Close()
		return nil, fmt.Errorf("open state manager: %w", err)
	}

	return &stores{
		cfg:             cfg,
		dataDir:         dataDir,
		embedder:        embedder,
		vectors:         vectors,
		lexicon:         lexicon,
		states:          states,
		vectorStorePath: vectorStorePath,
		lexicalPath:     lexicalPath,
		statePath:       statePath,
	}, nil
}

// Close releases every underlying handle, in reverse acquisition order.
func (s *stores) Close() {
	_ = s.states.Close()
	_ = s.lexicon.Close()
	_ = s.vectors.Close()
	_ = s.embedder.Close()
}

// newIndexer builds an Indexer over root using s's already-open
// collaborators.
func (s *stores) newIndexer(root string) (*index.Indexer, error) {
	scn, err := scanner.New()
	if err != nil {
		return nil, fmt.Errorf("create scanner: %w", err)
	}

	cfg := index.DefaultConfig(root)
	cfg.SkipExtensions = s.cfg.Index.SkipExtensions
	cfg.SkipFilenamePatterns = s.cfg.Index.SkipFiles
	cfg.MaxFileBytes = int64(s.cfg.Index.MaxFileMB) * 1024 * 1024
	cfg.MaxChunksPerFile = s.cfg.Index.MaxChunks

	return index.New(cfg, index.Deps{
		Extractor:       extract.New(),
		Embedder:        s.embedder,
		Vectors:         s.vectors,
		Lexicon:         s.lexicon,
		States:          s.states,
		Scanner:         scn,
		VectorStorePath: s.vectorStorePath,
	})
}

// resolveDataDir returns cfg.Storage.Path, expanding "~" the same way
// ExpandRoots does for index roots.
func resolveDataDir(cfg *config.Config) string {
	p := cfg.Storage.Path
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") && home != "" {
		return filepath.Join(home, p[2:])
	}
	return p
}

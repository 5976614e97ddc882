package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/nexus-search/nexus/internal/chunk"
	"github.com/nexus-search/nexus/internal/embed"
	"github.com/nexus-search/nexus/internal/extract"
	"github.com/nexus-search/nexus/internal/lexical"
	"github.com/nexus-search/nexus/internal/scanner"
	"github.com/nexus-search/nexus/internal/state"
	"github.com/nexus-search/nexus/internal/vectorstore"
	"golang.org/x/sync/errgroup"
)

// Indexer is the orchestrator: it discovers files under a root,
// consults the State Manager to decide what needs work, drives the
// Extractor, Chunker and Embedder across two phases, and commits
// results to the Vector Store and Lexical Index.
//
// Indexer holds its collaborators by reference and has no inheritance
// relationship with any of them, so tests can substitute fakes for
// each without touching the orchestration logic itself.
type Indexer struct {
	cfg Config

	extractor extract.Extractor
	embedder  embed.Embedder
	vectors   *vectorstore.Store
	lexicon   *lexical.Index
	states    *state.Manager
	scanner   *scanner.Scanner

	// vectorStorePath is where Phase 4 persists the Vector Store. Empty
	// means Save is a no-op (used by in-memory test stores).
	vectorStorePath string
}

// Deps bundles the collaborators New needs. All fields are required
// except VectorStorePath, which may be empty for in-memory stores.
type Deps struct {
	Extractor       extract.Extractor
	Embedder        embed.Embedder
	Vectors         *vectorstore.Store
	Lexicon         *lexical.Index
	States          *state.Manager
	Scanner         *scanner.Scanner
	VectorStorePath string
}

// New builds an Indexer from cfg and deps, applying the spec's
// defaults for any zero-valued Config field.
func New(cfg Config, deps Deps) (*Indexer, error) {
	if deps.Extractor == nil || deps.Embedder == nil || deps.Vectors == nil ||
		deps.Lexicon == nil || deps.States == nil || deps.Scanner == nil {
		return nil, fmt.Errorf("index: all dependencies are required")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunk.DefaultMaxLen
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultConfig(cfg.Root).MaxFileBytes
	}
	if cfg.MaxChunksPerFile <= 0 {
		cfg.MaxChunksPerFile = DefaultConfig(cfg.Root).MaxChunksPerFile
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	return &Indexer{
		cfg:             cfg,
		extractor:       deps.Extractor,
		embedder:        deps.Embedder,
		vectors:         deps.Vectors,
		lexicon:         deps.Lexicon,
		states:          deps.States,
		scanner:         deps.Scanner,
		vectorStorePath: deps.VectorStorePath,
	}, nil
}

// maxPageChunkIndex is the largest chunk-in-page ordinal the composed
// global_index encoding (page_num*1000 + chunk_in_page) can carry
// without colliding with the next page's range.
const maxPageChunkIndex = 999

// pagedChunkOutcome is the result of chunking and embedding one page.
type pagedChunkOutcome struct {
	docIDs []string
	err    error
}

// Run discovers files under cfg.Root, drives extraction/chunking for
// non-paged files in parallel (Phase 1), embeds and stores them
// sequentially (Phase 2), then processes paged documents sequentially
// with page-level checkpointing (Phase 3), and finally persists both
// stores (Phase 4). progress may be nil.
func (ix *Indexer) Run(ctx context.Context, progress ProgressFunc) (*IndexResult, error) {
	if progress == nil {
		progress = func(Event) {}
	}

	result := &IndexResult{}

	ix.checkMemoryPressure(progress)

	files, err := ix.discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("index: discover: %w", err)
	}

	var pagedFiles, flatFiles []discoveredFile
	for _, f := range files {
		if ix.extractor.IsPaged(f.path) {
			pagedFiles = append(pagedFiles, f)
		} else {
			flatFiles = append(flatFiles, f)
		}
	}

	outcomes := ix.phase1Extract(ctx, flatFiles, result)
	if err := ix.phase2EmbedAndStore(ctx, outcomes, progress, result); err != nil {
		return result, err
	}

	if err := ix.phase3Paged(ctx, pagedFiles, progress, result); err != nil {
		return result, err
	}

	if err := ix.phase4Persist(); err != nil {
		return result, fmt.Errorf("index: persist: %w", err)
	}
	progress(Event{Kind: EventDone})

	return result, nil
}

// checkMemoryPressure samples process memory and emits an advisory
// MemoryPressure event when it exceeds the configured limit. This is
// observational only in the current design; it does not throttle
// Phase 1's worker pool.
func (ix *Indexer) checkMemoryPressure(progress ProgressFunc) {
	if ix.cfg.MaxMemoryBytes == 0 {
		return
	}
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	if memStats.Sys > ix.cfg.MaxMemoryBytes {
		progress(Event{
			Kind:        EventMemoryPressure,
			MemoryUsed:  memStats.Sys,
			MemoryLimit: ix.cfg.MaxMemoryBytes,
		})
	}
}

// flatOutcome is one non-paged file's Phase 1 result: either chunks
// ready for embedding, a size/chunk-count skip, an unchanged verdict,
// or an extraction error.
type flatOutcome struct {
	path      string
	modTime   time.Time
	fileType  string
	chunks    []string
	err       error
	skipped   bool
	reason    string
	unchanged bool
}

// phase1Extract fans non-paged files out across a worker pool bounded
// by cfg.Workers. Extraction is fully synchronous and CPU-bound per
// worker; nothing here suspends. Results are collected in whatever
// order workers finish, matching the spec's "unspecified order"
// contract for Phase 1.
func (ix *Indexer) phase1Extract(ctx context.Context, files []discoveredFile, result *IndexResult) []flatOutcome {
	outcomes := make([]flatOutcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Workers)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			outcomes[i] = ix.extractOne(gctx, f)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		switch {
		case o.skipped:
			result.FilesSkipped++
		case o.unchanged:
			result.FilesUnchanged++
		}
	}

	return outcomes
}

func (ix *Indexer) extractOne(ctx context.Context, f discoveredFile) flatOutcome {
	if f.size > ix.cfg.MaxFileBytes {
		return flatOutcome{path: f.path, skipped: true, reason: "file too large"}
	}

	needs, err := ix.states.NeedsIndexing(ctx, f.path, f.modTime)
	if err == nil && !needs {
		return flatOutcome{path: f.path, unchanged: true}
	}
	// A StateError surfacing from needs_indexing falls back to
	// "index anyway" per the spec's error-handling design.

	text, err := ix.extractor.ExtractText(f.path)
	if err != nil {
		return flatOutcome{path: f.path, modTime: f.modTime, err: err}
	}

	chunks := chunk.Split(text, ix.cfg.ChunkSize)
	if len(chunks) > ix.cfg.MaxChunksPerFile {
		return flatOutcome{path: f.path, skipped: true, reason: "too many chunks"}
	}

	return flatOutcome{
		path:     f.path,
		modTime:  f.modTime,
		fileType: classifyFileType(f.path),
		chunks:   chunks,
	}
}

// classifyFileType tags a chunk's FileType metadata with the scanner's
// language detection (e.g. "go", "markdown", "dockerfile") rather than the
// bare extension, so extensionless text-family files like Makefile and
// Dockerfile get a meaningful FileType instead of an empty one. Falls back
// to the raw extension for anything the scanner's language map doesn't
// recognize.
func classifyFileType(path string) string {
	if lang := scanner.DetectLanguage(path); lang != "" {
		return lang
	}
	return extensionOf(path)
}

// phase2EmbedAndStore drives the sequential embed-and-store pass over
// Phase 1's non-paged results, in the order Phase 1 happened to
// produce them. The embedder, Vector Store and Lexical Index are each
// accessed from a single goroutine here, honoring the "at most one
// call in flight" constraint on the embedder.
func (ix *Indexer) phase2EmbedAndStore(ctx context.Context, outcomes []flatOutcome, progress ProgressFunc, result *IndexResult) error {
	for _, o := range outcomes {
		if o.skipped || o.unchanged {
			continue
		}
		if o.err != nil {
			progress(Event{Kind: EventFileError, Path: o.path, Err: o.err})
			result.Errors = append(result.Errors, FileError{Path: o.path, Err: o.err})
			continue
		}

		progress(Event{Kind: EventFileStarted, Path: o.path})

		if len(o.chunks) == 0 {
			if err := ix.states.MarkIndexed(ctx, o.path, o.modTime, nil); err != nil {
				slog.Warn("index: mark_indexed failed for empty file", "path", o.path, "error", err)
			}
			result.FilesIndexed++
			progress(Event{Kind: EventFileIndexed, Path: o.path})
			continue
		}

		if err := ix.embedChunkAndStoreFile(ctx, o, progress, result); err != nil {
			progress(Event{Kind: EventFileError, Path: o.path, Err: err})
			result.Errors = append(result.Errors, FileError{Path: o.path, Err: err})
			continue
		}

		progress(Event{Kind: EventFileIndexed, Path: o.path})
	}
	return nil
}

func (ix *Indexer) embedChunkAndStoreFile(ctx context.Context, o flatOutcome, progress ProgressFunc, result *IndexResult) error {
	vectors, err := ix.embedder.EmbedBatch(ctx, o.chunks)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}

	docIDs := make([]string, len(o.chunks))
	metas := make([]vectorstore.Metadata, len(o.chunks))
	lexDocs := make([]lexical.Doc, len(o.chunks))
	for i, c := range o.chunks {
		id := uuid.NewString()
		docIDs[i] = id
		metas[i] = vectorstore.Metadata{
			DocID:      id,
			FilePath:   o.path,
			FileType:   o.fileType,
			ChunkIndex: i,
			Snippet:    snippetOf(c),
		}
	}

	if err := ix.vectors.AddBatch(ctx, docIDs, vectors, metas); err != nil {
		return fmt.Errorf("vector store add_batch: %w", err)
	}

	for i, c := range o.chunks {
		lexDocs[i] = lexical.Doc{DocID: docIDs[i], FilePath: o.path, Content: c, ChunkIndex: i}
	}
	if err := ix.lexicon.AddBatch(ctx, lexDocs); err != nil {
		// Non-fatal: the file's vectors are already stored. The state
		// row is left unwritten so the next run retries the whole
		// file, per the spec's accepted eventual-consistency window.
		return fmt.Errorf("lexical index add_batch: %w", err)
	}

	if err := ix.states.MarkIndexed(ctx, o.path, o.modTime, docIDs); err != nil {
		// Warning only: vectors and lexical entries remain; the file
		// will be re-indexed next run since its state row is stale.
		slog.Warn("index: mark_indexed failed, file will be re-indexed next run",
			"path", o.path, "error", err)
	}

	for i, id := range docIDs {
		progress(Event{Kind: EventChunkEmbedded, Path: o.path, ChunkIndex: i, DocID: id})
	}
	result.ChunksIndexed += len(docIDs)
	result.FilesIndexed++
	return nil
}

// phase3Paged processes paged documents sequentially, checkpointing
// after every page so a crash mid-document loses at most the page in
// flight.
func (ix *Indexer) phase3Paged(ctx context.Context, files []discoveredFile, progress ProgressFunc, result *IndexResult) error {
	for _, f := range files {
		if f.size > ix.cfg.MaxFileBytes {
			result.FilesSkipped++
			continue
		}

		needs, err := ix.states.NeedsIndexing(ctx, f.path, f.modTime)
		if err == nil && !needs {
			result.FilesUnchanged++
			continue
		}

		resumePage := ix.resumePageFor(ctx, f)

		progress(Event{Kind: EventFileStarted, Path: f.path})

		pages, err := ix.extractor.ExtractPages(f.path)
		if err != nil {
			progress(Event{Kind: EventFileError, Path: f.path, Err: err})
			result.Errors = append(result.Errors, FileError{Path: f.path, Err: err})
			continue
		}

		totalPages := len(pages)
		if totalPages == 0 {
			if err := ix.states.MarkIndexed(ctx, f.path, f.modTime, nil); err != nil {
				slog.Warn("index: mark_indexed failed for empty paged file", "path", f.path, "error", err)
			}
			result.FilesIndexed++
			progress(Event{Kind: EventFileIndexed, Path: f.path})
			continue
		}
		fileErr := ix.processPages(ctx, f, pages, totalPages, resumePage, progress, result)
		if fileErr != nil {
			progress(Event{Kind: EventFileError, Path: f.path, Err: fileErr})
			result.Errors = append(result.Errors, FileError{Path: f.path, Err: fileErr})
			continue
		}

		result.FilesIndexed++
		progress(Event{Kind: EventFileIndexed, Path: f.path})
	}
	return nil
}

// resumePageFor returns the page to resume from for a paged file,
// starting over at 0 if the file changed since the last checkpoint
// (the stored mtime no longer matches disk).
func (ix *Indexer) resumePageFor(ctx context.Context, f discoveredFile) int {
	page, _, ok, err := ix.states.GetResumePage(ctx, f.path)
	if err != nil || !ok {
		return 0
	}
	storedMtime, known, err := ix.states.GetFileMtime(ctx, f.path)
	if err != nil || !known {
		return 0
	}
	if !storedMtime.Truncate(time.Second).Equal(f.modTime.Truncate(time.Second)) {
		return 0
	}
	return page
}

func (ix *Indexer) processPages(ctx context.Context, f discoveredFile, pages []extract.Page, totalPages, resumePage int, progress ProgressFunc, result *IndexResult) error {
	for _, page := range pages {
		if page.PageNum < resumePage {
			continue
		}

		if page.Text == "" {
			progress(Event{Kind: EventPageProcessed, Path: f.path, Page: page.PageNum, TotalPages: totalPages})
			if err := ix.states.MarkPageIndexed(ctx, f.path, f.modTime, page.PageNum, totalPages, nil); err != nil {
				slog.Warn("index: mark_page_indexed failed", "path", f.path, "page", page.PageNum, "error", err)
			}
			continue
		}

		chunks := chunk.Split(page.Text, ix.cfg.ChunkSize)
		if len(chunks) > maxPageChunkIndex+1 {
			return fmt.Errorf("page %d produced %d chunks, exceeding the %d-chunk-per-page limit", page.PageNum, len(chunks), maxPageChunkIndex+1)
		}

		outcome := ix.embedChunkAndStorePage(ctx, f, page, totalPages, chunks, progress)
		if outcome.err != nil {
			return outcome.err
		}

		if err := ix.states.MarkPageIndexed(ctx, f.path, f.modTime, page.PageNum, totalPages, outcome.docIDs); err != nil {
			slog.Warn("index: mark_page_indexed failed", "path", f.path, "page", page.PageNum, "error", err)
		}
		result.ChunksIndexed += len(outcome.docIDs)
		progress(Event{Kind: EventPageProcessed, Path: f.path, Page: page.PageNum, TotalPages: totalPages})
	}
	return nil
}

func (ix *Indexer) embedChunkAndStorePage(ctx context.Context, f discoveredFile, page extract.Page, totalPages int, chunks []string, progress ProgressFunc) pagedChunkOutcome {
	vectors, err := ix.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return pagedChunkOutcome{err: fmt.Errorf("embed batch (page %d): %w", page.PageNum, err)}
	}

	docIDs := make([]string, len(chunks))
	metas := make([]vectorstore.Metadata, len(chunks))
	lexDocs := make([]lexical.Doc, len(chunks))
	for i, c := range chunks {
		id := uuid.NewString()
		globalIndex := page.PageNum*1000 + i
		docIDs[i] = id
		metas[i] = vectorstore.Metadata{
			DocID:      id,
			FilePath:   f.path,
			FileType:   extensionOf(f.path),
			ChunkIndex: globalIndex,
			Snippet:    snippetOf(c),
		}
		lexDocs[i] = lexical.Doc{DocID: id, FilePath: f.path, Content: c, ChunkIndex: globalIndex}
	}

	if err := ix.vectors.AddBatch(ctx, docIDs, vectors, metas); err != nil {
		return pagedChunkOutcome{err: fmt.Errorf("vector store add_batch (page %d): %w", page.PageNum, err)}
	}
	if err := ix.lexicon.AddBatch(ctx, lexDocs); err != nil {
		return pagedChunkOutcome{err: fmt.Errorf("lexical index add_batch (page %d): %w", page.PageNum, err)}
	}

	for i, id := range docIDs {
		progress(Event{Kind: EventChunkEmbedded, Path: f.path, ChunkIndex: page.PageNum*1000 + i, DocID: id})
	}

	return pagedChunkOutcome{docIDs: docIDs}
}

// phase4Persist flushes both stores. Failures here are fatal to Run,
// since by this point every per-file failure has already been
// recorded and the run's remaining obligation is durability.
func (ix *Indexer) phase4Persist() error {
	if ix.vectorStorePath != "" {
		if err := ix.vectors.Save(ix.vectorStorePath); err != nil {
			return fmt.Errorf("vector store save: %w", err)
		}
	}
	if err := ix.lexicon.Commit(); err != nil {
		return fmt.Errorf("lexical index commit: %w", err)
	}
	return nil
}

// snippetOf returns up to a 200-character UI preview of a chunk,
// marking truncation with an ellipsis. Truncation happens on a rune
// boundary so multi-byte characters are never split.
func snippetOf(text string) string {
	const maxLen = 200
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "…"
}

package index

// EventKind identifies the kind of a progress Event. Consumers must
// tolerate event kinds they don't recognize, since the event stream is
// for observability, not control.
type EventKind string

const (
	EventFileStarted    EventKind = "file_started"
	EventFileIndexed    EventKind = "file_indexed"
	EventFileError      EventKind = "file_error"
	EventFileSkipped    EventKind = "file_skipped"
	EventFileUnchanged  EventKind = "file_unchanged"
	EventMemoryPressure EventKind = "memory_pressure"
	EventPageProcessed  EventKind = "page_processed"
	EventChunkProcessed EventKind = "chunk_processed"
	EventChunkEmbedded  EventKind = "chunk_embedded"
	EventDone           EventKind = "done"
)

// Event is a single progress notification emitted during Run. Only the
// fields relevant to Kind are populated.
type Event struct {
	Kind EventKind
	Path string

	// FileSkipped
	Reason string

	// FileError
	Err error

	// PageProcessed
	Page       int
	TotalPages int

	// ChunkProcessed / ChunkEmbedded
	ChunkIndex int
	DocID      string

	// MemoryPressure
	MemoryUsed  uint64
	MemoryLimit uint64
}

// ProgressFunc receives Events as Run executes. It must not block for
// long; Run is otherwise strictly sequential outside Phase 1's pool.
type ProgressFunc func(Event)

// Config controls discovery, size/chunk limits and resource policy for
// a single Run.
type Config struct {
	Root                 string
	ChunkSize            int
	MaxFileBytes         int64
	MaxMemoryBytes       uint64
	MaxChunksPerFile     int
	SkipExtensions       []string
	SkipFilenamePatterns []string
	Workers              int
}

// DefaultConfig returns the spec's defaults: 1500-character chunks, a
// 100 MB per-file cap, a 5000-chunk-per-file cap, and no extension or
// filename exclusions beyond the supported family.
func DefaultConfig(root string) Config {
	return Config{
		Root:             root,
		ChunkSize:        1500,
		MaxFileBytes:     100 * 1024 * 1024,
		MaxMemoryBytes:   0, // 0 disables the advisory memory check
		MaxChunksPerFile: 5000,
	}
}

// supportedExtensions is the discovery walker's "supported family":
// the extensions Phase 1/3 will attempt to extract. This mirrors the
// union of everything internal/extract recognizes by content type, not
// just the spec's minimum {txt,md,pdf,png,jpg,jpeg} set.
var supportedExtensions = map[string]bool{
	"txt": true, "md": true, "markdown": true, "rst": true, "org": true,
	"tex": true, "rtf": true,
	"py": true, "rs": true, "js": true, "ts": true, "jsx": true, "tsx": true,
	"cpp": true, "c": true, "h": true, "hpp": true, "cc": true, "cxx": true,
	"go": true, "java": true, "kt": true, "kts": true, "scala": true,
	"rb": true, "php": true, "swift": true, "m": true, "mm": true,
	"cs": true, "fs": true, "vb": true, "r": true, "lua": true, "pl": true,
	"sh": true, "bash": true, "zsh": true, "fish": true,
	"json": true, "yaml": true, "yml": true, "toml": true, "xml": true,
	"ini": true, "cfg": true, "conf": true, "config": true,
	"css": true, "scss": true, "sass": true, "less": true,
	"sql": true, "csv": true, "tsv": true, "log": true,
	"pdf":  true,
	"png":  true, "jpg": true, "jpeg": true, "webp": true, "bmp": true, "tiff": true, "tif": true,
	"docx": true, "xlsx": true, "xls": true, "pptx": true, "odt": true, "odp": true,
	"html": true, "htm": true,
}

// FileError attributes a per-file failure without aborting the run.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

// IndexResult summarizes the outcome of a single Run.
type IndexResult struct {
	FilesIndexed   int
	FilesUnchanged int
	FilesSkipped   int
	ChunksIndexed  int
	Errors         []FileError
}

// GcResult summarizes a single GarbageCollect pass.
type GcResult struct {
	DeletedFiles      int
	ModifiedFiles     int
	EmbeddingsRemoved int
}

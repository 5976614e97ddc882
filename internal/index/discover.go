package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nexus-search/nexus/internal/extract"
	"github.com/nexus-search/nexus/internal/scanner"
)

// discoveredFile is a single file surfaced by discovery, before the
// state filter and per-file size check run against it.
type discoveredFile struct {
	path    string
	size    int64
	modTime time.Time
}

// discover walks cfg.Root with the shared scanner package, configured
// so binary document containers (PDF, images, office formats) are not
// dropped by its code-search binary sniff, then narrows the walk's
// output to the supported family and the configured skip rules.
//
// skip_filename_patterns are substring matches per the spec; scanner's
// pattern language treats a *substring* pattern (wrapped in `*...*`) as
// a case-insensitive Contains check, so patterns are wrapped here
// rather than taught to the walker itself.
func (ix *Indexer) discover(ctx context.Context) ([]discoveredFile, error) {
	exclude := make([]string, 0, len(ix.cfg.SkipFilenamePatterns))
	for _, p := range ix.cfg.SkipFilenamePatterns {
		if p == "" {
			continue
		}
		exclude = append(exclude, "*"+p+"*")
	}

	opts := &scanner.ScanOptions{
		RootDir:          ix.cfg.Root,
		ExcludePatterns:  exclude,
		RespectGitignore: false,
		Workers:          ix.cfg.Workers,
		MaxFileSize:      ix.cfg.MaxFileBytes,
		IncludeBinary:    true,
	}
	// scanner applies MaxFileSize as a hard walk-time filter; the spec
	// wants oversized files to still surface as a counted FileSkipped,
	// so the walker is given headroom and Phase 1 enforces the real cap.
	if opts.MaxFileSize > 0 {
		opts.MaxFileSize *= 4
	}

	results, err := ix.scanner.Scan(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("index: discover: %w", err)
	}

	skipExt := make(map[string]bool, len(ix.cfg.SkipExtensions))
	for _, e := range ix.cfg.SkipExtensions {
		skipExt[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}

	var files []discoveredFile
	for r := range results {
		if r.Error != nil {
			continue
		}
		ext := extensionOf(r.File.Path)
		if ext == "" {
			// No extension: Makefile, Dockerfile, README, .gitignore, and
			// similar text-family files have none, so they can't be judged
			// against supportedExtensions. Defer to the same UTF-8 sniff
			// ExtractText uses for them, rather than dropping them here
			// where that sniff would never run.
			if !extract.IsExtensionlessTextFile(r.File.AbsPath) {
				continue
			}
		} else {
			if !supportedExtensions[ext] {
				continue
			}
			if skipExt[ext] {
				continue
			}
		}
		files = append(files, discoveredFile{path: r.File.AbsPath, size: r.File.Size, modTime: r.File.ModTime})
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return files, nil
}

func extensionOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(path[i+1:])
}

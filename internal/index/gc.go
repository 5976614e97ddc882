package index

import (
	"context"
	"fmt"
)

// GarbageCollect removes embeddings for files deleted from disk and
// invalidates embeddings for files modified since their last index,
// without removing their State Manager row (so the next Run's
// needs_indexing check still sees them as stale and re-indexes them).
// It is idempotent: calling it twice in a row without an intervening
// Run is a no-op the second time.
func (ix *Indexer) GarbageCollect(ctx context.Context) (*GcResult, error) {
	result := &GcResult{}

	discovered, err := ix.discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("index: gc: discover: %w", err)
	}

	current := make([]string, len(discovered))
	onDisk := make(map[string]discoveredFile, len(discovered))
	for i, f := range discovered {
		current[i] = f.path
		onDisk[f.path] = f
	}

	if err := ix.gcDeletedFiles(ctx, current, result); err != nil {
		return result, err
	}
	if err := ix.gcModifiedFiles(ctx, onDisk, result); err != nil {
		return result, err
	}

	if ix.vectorStorePath != "" {
		if err := ix.vectors.Save(ix.vectorStorePath); err != nil {
			return result, fmt.Errorf("index: gc: vector store save: %w", err)
		}
	}
	if err := ix.lexicon.Commit(); err != nil {
		return result, fmt.Errorf("index: gc: lexical index commit: %w", err)
	}

	return result, nil
}

// gcDeletedFiles removes the state row and both indexes' entries for
// every tracked path no longer present on disk.
func (ix *Indexer) gcDeletedFiles(ctx context.Context, currentPaths []string, result *GcResult) error {
	deleted, err := ix.states.GetDeletedFiles(ctx, currentPaths)
	if err != nil {
		return fmt.Errorf("index: gc: get_deleted_files: %w", err)
	}

	for _, path := range deleted {
		docIDs, err := ix.states.GetDocIDs(ctx, path)
		if err != nil {
			return fmt.Errorf("index: gc: get doc_ids for %s: %w", path, err)
		}
		if err := ix.states.RemoveFile(ctx, path); err != nil {
			return fmt.Errorf("index: gc: remove_file %s: %w", path, err)
		}
		if len(docIDs) > 0 {
			if err := ix.vectors.DeleteByIDs(docIDs); err != nil {
				return fmt.Errorf("index: gc: vector delete_by_ids for %s: %w", path, err)
			}
			if err := ix.lexicon.DeleteByIDs(docIDs); err != nil {
				return fmt.Errorf("index: gc: lexical delete_by_ids for %s: %w", path, err)
			}
		}
		result.DeletedFiles++
		result.EmbeddingsRemoved += len(docIDs)
	}
	return nil
}

// gcModifiedFiles invalidates embeddings for every tracked file whose
// disk mtime has advanced past its recorded mtime, leaving the state
// row in place so the file is picked back up by the next Run.
func (ix *Indexer) gcModifiedFiles(ctx context.Context, onDisk map[string]discoveredFile, result *GcResult) error {
	tracked, err := ix.states.GetAllFiles(ctx)
	if err != nil {
		return fmt.Errorf("index: gc: get_all_files: %w", err)
	}

	for _, rec := range tracked {
		f, present := onDisk[rec.Path]
		if !present {
			continue // handled by gcDeletedFiles
		}
		if !f.modTime.After(rec.FileMtime) {
			continue // unchanged
		}

		docIDs, err := ix.states.GetDocIDs(ctx, rec.Path)
		if err != nil {
			return fmt.Errorf("index: gc: get doc_ids for %s: %w", rec.Path, err)
		}
		if len(docIDs) > 0 {
			if err := ix.vectors.DeleteByIDs(docIDs); err != nil {
				return fmt.Errorf("index: gc: vector delete_by_ids for %s: %w", rec.Path, err)
			}
			if err := ix.lexicon.DeleteByIDs(docIDs); err != nil {
				return fmt.Errorf("index: gc: lexical delete_by_ids for %s: %w", rec.Path, err)
			}
		}
		result.ModifiedFiles++
		result.EmbeddingsRemoved += len(docIDs)
	}
	return nil
}

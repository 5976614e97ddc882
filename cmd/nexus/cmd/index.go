package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nexus-search/nexus/internal/config"
	"github.com/nexus-search/nexus/internal/index"
	"github.com/nexus-search/nexus/internal/lockfile"
	"github.com/nexus-search/nexus/internal/output"
	"github.com/nexus-search/nexus/internal/preflight"
)

func newIndexCmd() *cobra.Command {
	var offline bool
	var gc bool

	cmd := &cobra.Command{
		Use:   "index [path...]",
		Short: "Index one or more directories for searching",
		Long: `Index scans the given directories (or config.toml's index.roots
if none are given), extracts text, chunks it, embeds the chunks and
commits them to the Vector Store and Lexical Index.

A second run over an unmodified tree does no work: only new or changed
files are re-extracted and re-embedded. Pass --gc to additionally
remove entries for files deleted or modified since the last run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, args, offline, gc)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use the deterministic static embedder (skip any network-backed provider)")
	cmd.Flags().BoolVar(&gc, "gc", false, "Run garbage collection after indexing")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, args []string, offline, gc bool) error {
	cleanup := setupLogging()
	defer cleanup()
	out := output.New(cmd.OutOrStdout())

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	roots := args
	if len(roots) == 0 {
		roots, err = cfg.ExpandRoots()
		if err != nil {
			return fmt.Errorf("expand index.roots: %w", err)
		}
	}
	if len(roots) == 0 {
		return fmt.Errorf("no paths given and index.roots is empty in config")
	}

	dataDir := resolveDataDir(cfg)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	if preflight.NeedsCheck(dataDir) {
		checker := preflight.New(preflight.WithOutput(cmd.OutOrStdout()), preflight.WithOffline(offline))
		results := checker.RunAll(ctx, dataDir)
		checker.PrintResults(results)
		if checker.HasCriticalFailures(results) {
			return fmt.Errorf("preflight checks failed, see above")
		}
		if err := preflight.MarkPassed(dataDir); err != nil {
			slog.Warn("preflight_mark_failed", slog.String("error", err.Error()))
		}
	}

	lock := lockfile.New(dataDir)
	acquired, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("another nexus process is already indexing %s (lock at %s)", dataDir, lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	st, err := openStores(ctx, cfg, dataDir, offline)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer st.Close()

	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", root, err)
		}
		if err := indexOneRoot(ctx, st, absRoot, out); err != nil {
			return err
		}
	}

	if gc {
		out.Status("", "Running garbage collection...")
		var totalDeleted, totalModified, totalRemoved int
		for _, root := range roots {
			absRoot, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", root, err)
			}
			ix, err := st.newIndexer(absRoot)
			if err != nil {
				return fmt.Errorf("create indexer for %s: %w", absRoot, err)
			}
			gcResult, err := ix.GarbageCollect(ctx)
			if err != nil {
				return fmt.Errorf("garbage collect %s: %w", absRoot, err)
			}
			totalDeleted += gcResult.DeletedFiles
			totalModified += gcResult.ModifiedFiles
			totalRemoved += gcResult.EmbeddingsRemoved
		}
		out.Statusf("", "gc: %d deleted files, %d modified files, %d embeddings removed",
			totalDeleted, totalModified, totalRemoved)
	}

	return nil
}

func indexOneRoot(ctx context.Context, st *stores, root string, out *output.Writer) error {
	ix, err := st.newIndexer(root)
	if err != nil {
		return fmt.Errorf("create indexer for %s: %w", root, err)
	}

	out.Statusf("", "Indexing %s...", root)
	result, err := ix.Run(ctx, func(e index.Event) {
		switch e.Kind {
		case index.EventFileError:
			slog.Warn("file_error", slog.String("path", e.Path), slog.String("error", e.Err.Error()))
		case index.EventMemoryPressure:
			slog.Warn("memory_pressure", slog.Uint64("used", e.MemoryUsed), slog.Uint64("limit", e.MemoryLimit))
		}
	})
	if err != nil {
		return fmt.Errorf("index %s: %w", root, err)
	}

	out.Statusf("", "  %d indexed, %d unchanged, %d skipped, %d chunks, %d errors",
		result.FilesIndexed, result.FilesUnchanged, result.FilesSkipped, result.ChunksIndexed, len(result.Errors))
	for _, fe := range result.Errors {
		out.Warningf("%s: %v", fe.Path, fe.Err)
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexus-search/nexus/internal/config"
	nexuserrors "github.com/nexus-search/nexus/internal/errors"
	"github.com/nexus-search/nexus/internal/lockfile"
	"github.com/nexus-search/nexus/internal/output"
	"github.com/nexus-search/nexus/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "watch [path...]",
		Short: "Watch directories and re-index on change",
		Long: `watch starts a filesystem watcher over the given paths (or
config.toml's index.roots if none are given) and re-runs an
incremental index pass whenever a debounced batch of changes settles,
until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, args, offline)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the deterministic static embedder")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, args []string, offline bool) error {
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
	lock := lockfile.New(dataDir)
	acquired, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("another nexus process is already running against %s (lock at %s)", dataDir, lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	st, err := openStores(ctx, cfg, dataDir, offline)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer st.Close()

	opts := watcher.Options{
		DebounceWindow: time.Duration(cfg.Watch.DebounceSecs) * time.Second,
		IgnorePatterns: cfg.Watch.IgnorePatterns,
	}.WithDefaults()

	var wg sync.WaitGroup
	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", root, err)
		}

		w, err := watcher.NewHybridWatcher(opts)
		if err != nil {
			return fmt.Errorf("create watcher for %s: %w", absRoot, err)
		}
		// Start blocks until ctx is done, so it runs beside watchRoot.
		go func(w *watcher.HybridWatcher, absRoot string) {
			if err := w.Start(ctx, absRoot); err != nil && ctx.Err() == nil {
				slog.Error("start watcher", slog.String("root", absRoot), slog.Any("error", err))
				_ = w.Stop()
			}
		}(w, absRoot)

		out.Statusf("", "Watching %s (debounce %s)...", absRoot, opts.DebounceWindow)

		wg.Add(1)
		go watchRoot(ctx, &wg, w, st, absRoot, out)
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

func watchRoot(ctx context.Context, wg *sync.WaitGroup, w *watcher.HybridWatcher, st *stores, root string, out *output.Writer) {
	defer wg.Done()
	defer func() { _ = w.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-w.Events():
			if !ok {
				return
			}
			slog.Info("watch_batch", slog.String("root", root), slog.Int("events", len(batch)))
			if err := reindexAfterChange(ctx, st, root); err != nil {
				out.Errorf("reindex %s: %v", root, err)
			}
		case werr, ok := <-w.Errors():
			if !ok {
				continue
			}
			slog.Warn("watch_error", slog.String("root", root), slog.String("error", werr.Error()))
		}
	}
}

// reindexAfterChange retries the reconciliation pass on transient failure
// rather than dropping the batch: a momentary fs hiccup or a store that's
// mid-compaction shouldn't mean the edits that triggered this batch never
// get indexed until the next unrelated change wakes the watcher back up.
func reindexAfterChange(ctx context.Context, st *stores, root string) error {
	return nexuserrors.Retry(ctx, nexuserrors.RetryConfig{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}, func() error {
		ix, err := st.newIndexer(root)
		if err != nil {
			return err
		}
		_, err = ix.Run(ctx, nil)
		return err
	})
}

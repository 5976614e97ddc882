package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexus-search/nexus/internal/config"
	"github.com/nexus-search/nexus/internal/output"
	"github.com/nexus-search/nexus/internal/preflight"
)

func newStatusCmd() *cobra.Command {
	var offline bool
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index size and data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, offline, check)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the deterministic static embedder")
	cmd.Flags().BoolVar(&check, "check", false, "Also run preflight checks (disk, memory, embedder reachability)")
	return cmd
}

func runStatus(cmd *cobra.Command, offline, check bool) error {
	cleanup := setupLogging()
	defer cleanup()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dataDir := resolveDataDir(cfg)

	if check {
		checker := preflight.New(preflight.WithOutput(cmd.OutOrStdout()), preflight.WithVerbose(true), preflight.WithOffline(offline))
		results := checker.RunAll(cmd.Context(), dataDir)
		checker.PrintResults(results)
		if checker.HasCriticalFailures(results) {
			return fmt.Errorf("preflight checks failed, see above")
		}
		return nil
	}

	st, err := openStores(cmd.Context(), cfg, dataDir, offline)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer st.Close()

	files, err := st.states.GetAllFiles(cmd.Context())
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}

	lexCount, err := st.lexicon.Count()
	if err != nil {
		return fmt.Errorf("count lexical index: %w", err)
	}

	out := output.New(cmd.OutOrStdout())
	out.Status("", "data directory: "+dataDir)
	out.Statusf("", "tracked files:  %d", len(files))
	out.Statusf("", "vectors:        %d", st.vectors.Count())
	out.Statusf("", "lexical chunks: %d", lexCount)
	out.Statusf("", "embedder:       %s (%d dims)", st.embedder.ModelName(), st.embedder.Dimensions())
	return nil
}

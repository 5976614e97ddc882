package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexus-search/nexus/internal/config"
	"github.com/nexus-search/nexus/internal/output"
)

func newExplainCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "explain <doc_id_prefix>",
		Short: "Show stored metadata for a chunk by doc_id prefix",
		Long: `explain looks up the Vector Store's metadata for every doc_id
beginning with the given prefix, showing the file it came from, its
chunk index and its stored snippet. Useful for tracing a search result
back to its source chunk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd, args[0], offline)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use the deterministic static embedder")
	return cmd
}

func runExplain(cmd *cobra.Command, prefix string, offline bool) error {
	cleanup := setupLogging()
	defer cleanup()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dataDir := resolveDataDir(cfg)
	st, err := openStores(cmd.Context(), cfg, dataDir, offline)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer st.Close()

	matches := st.vectors.GetMetadata(prefix)
	out := output.New(cmd.OutOrStdout())
	if len(matches) == 0 {
		out.Status("", fmt.Sprintf("No chunks found with doc_id prefix %q", prefix))
		return nil
	}

	for _, m := range matches {
		out.Statusf("", "doc_id prefix %q:", prefix)
		out.Status("", "  file:        "+m.FilePath)
		out.Status("", "  file_type:   "+m.FileType)
		out.Statusf("", "  chunk_index: %d", m.ChunkIndex)
		out.Status("", "  snippet:     "+m.Snippet)
	}
	return nil
}

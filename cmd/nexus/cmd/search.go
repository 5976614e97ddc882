package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexus-search/nexus/internal/config"
	"github.com/nexus-search/nexus/internal/output"
	"github.com/nexus-search/nexus/internal/search"
)

func newSearchCmd() *cobra.Command {
	var limit int
	var mode string
	var jsonOut bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documents",
		Long: `search runs a query against the Vector Store and Lexical Index
and prints the top matches, ranked hybrid by default (BM25 and
semantic similarity fused with Reciprocal Rank Fusion).

Examples:
  nexus search "quarterly revenue projections"
  nexus search --mode lexical "error code E4021"
  nexus search --limit 5 --json "onboarding checklist"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, limit, mode, jsonOut, offline)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Search mode: hybrid, semantic, lexical (default: config's search.default_mode)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the deterministic static embedder")

	cmd.AddCommand(newExplainCmd())

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, limit int, mode string, jsonOut, offline bool) error {
	cleanup := setupLogging()
	defer cleanup()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if mode == "" {
		mode = cfg.Search.DefaultMode
	}
	if limit <= 0 {
		limit = cfg.Search.ResultsCount
	}

	dataDir := resolveDataDir(cfg)
	st, err := openStores(ctx, cfg, dataDir, offline)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer st.Close()

	engine, err := search.NewEngine(
		search.WithEmbedderAndVectorStore(st.embedder, st.vectors),
		search.WithLexicalIndex(st.lexicon),
		search.WithLexicalSnippetSource(st.vectors),
	)
	if err != nil {
		return fmt.Errorf("create search engine: %w", err)
	}

	results, err := engine.Search(ctx, search.Mode(mode), query, limit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	out := output.New(cmd.OutOrStdout())
	if len(results) == 0 {
		out.Status("", fmt.Sprintf("No results for %q", query))
		return nil
	}
	out.Statusf("", "Found %d results for %q:", len(results), query)
	out.Newline()
	for i, r := range results {
		out.Statusf("", "%d. %s (chunk %d, score %.4f)", i+1, r.FilePath, r.ChunkIndex, r.Score)
		if r.Snippet != "" {
			out.Status("", "   "+r.Snippet)
		}
	}
	return nil
}

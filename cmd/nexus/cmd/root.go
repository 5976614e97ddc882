// Package cmd provides the CLI commands for nexus.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexus-search/nexus/internal/logging"
	"github.com/nexus-search/nexus/pkg/version"
)

var debugMode bool

// NewRootCmd creates the root command for the nexus CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nexus",
		Short: "Local-first hybrid document search",
		Long: `nexus indexes documents (text, Markdown, PDFs, images, office
documents) under one or more roots and serves hybrid search over them,
combining BM25 lexical ranking with embedding-based semantic
similarity through Reciprocal Rank Fusion.

Everything runs locally: no documents or queries leave the machine.`,
		Version:      version.Version,
		SilenceUsage: true,
	}

	cmd.SetVersionTemplate("nexus version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.nexus/logs/")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newServiceCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setupLogging initializes file-based logging for a single command
// invocation and returns a cleanup function to defer.
func setupLogging() func() {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg = logging.DebugConfig()
	}
	cfg.WriteToStderr = false

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to set up logging: %v\n", err)
		return func() {}
	}
	slog.SetDefault(logger)
	return cleanup
}

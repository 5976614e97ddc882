package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexus-search/nexus/internal/output"
	"github.com/nexus-search/nexus/internal/service"
)

func newServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage nexus as a background service (not supported in this build)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install a background service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return service.Install()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "uninstall",
		Short: "Remove a previously installed background service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return service.Uninstall()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report background service status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := service.Status()
			if err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Status("", fmt.Sprintf("service status: %s", status))
			return nil
		},
	})

	return cmd
}

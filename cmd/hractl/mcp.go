package main

import (
	"github.com/spf13/cobra"

	"github.com/health-risk-server/internal/setup"
)

func (c *cli) mcpCmd() *cobra.Command {
	var clientConfig string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Register the MCP server with a desktop MCP client",
	}
	cmd.PersistentFlags().StringVar(&clientConfig, "client-config", "", "client config file (default: the desktop client's config for this OS)")

	var opts setup.Options
	install := &cobra.Command{
		Use:   "install",
		Short: "Add or replace the health-risk server entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = clientConfig
			if _, err := setup.Install(opts); err != nil {
				return err
			}
			status, err := setup.GetStatus(clientConfig)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), status)
		},
	}
	install.Flags().StringVar(&opts.BinaryPath, "binary", "", "path to "+setup.BinaryName+" (default: search PATH)")
	install.Flags().StringVar(&opts.DataDir, "data-dir", "", "data directory passed as HRA_DATA_DIR")
	install.Flags().StringVar(&opts.RemoteScoringURL, "remote-scoring-url", "", "prediction service passed as HRA_REMOTE_SCORING_URL")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := setup.GetStatus(clientConfig)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), s)
		},
	}

	uninstall := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the health-risk server entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := setup.Uninstall(clientConfig)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), map[string]bool{"removed": removed})
		},
	}

	cmd.AddCommand(install, status, uninstall)
	return cmd
}

package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/health-risk-server/internal/database"
	"github.com/health-risk-server/internal/reports"
)

func (c *cli) migrateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the assessment database schema",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "migrations directory (default: database.migrations_path)")

	runner := func(cmd *cobra.Command) (*database.MigrationRunner, error) {
		m, err := c.loadConfig()
		if err != nil {
			return nil, err
		}
		dir := path
		if dir == "" {
			dir = m.GetDatabaseConfig().MigrationsPath
		}
		return database.NewMigrationRunner(m.GetDatabaseURL(), dir, c.logger(cmd))
	}

	version := func(cmd *cobra.Command, r *database.MigrationRunner) error {
		v, dirty, err := r.Version()
		if err != nil {
			return err
		}
		return c.print(cmd.OutOrStdout(), map[string]any{"version": v, "dirty": dirty})
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := runner(cmd)
				if err != nil {
					return err
				}
				defer r.Close()
				if err := r.Up(); err != nil {
					return err
				}
				return version(cmd, r)
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (default 1 step)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return fmt.Errorf("steps must be a positive integer: %q", args[0])
					}
					steps = n
				}
				r, err := runner(cmd)
				if err != nil {
					return err
				}
				defer r.Close()
				if err := r.Down(steps); err != nil {
					return err
				}
				return version(cmd, r)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := runner(cmd)
				if err != nil {
					return err
				}
				defer r.Close()
				return version(cmd, r)
			},
		},
	)
	return cmd
}

func (c *cli) reportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Export and import generated reports",
	}

	open := func() (reports.Store, error) {
		m, err := c.loadConfig()
		if err != nil {
			return nil, err
		}
		return reports.Open(m.GetConfig().Reports, m.GetReportsDatabaseURL())
	}

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write every report as a JSON export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			if out == "" || out == "-" {
				return store.ExportJSON(cmd.Context(), cmd.OutOrStdout())
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := store.ExportJSON(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	export.Flags().StringVarP(&out, "file", "f", "", "destination file (default stdout)")

	importCmd := &cobra.Command{
		Use:   "import <export.json>",
		Short: "Load a JSON export, skipping reports that already exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			imported, skipped, err := store.ImportJSON(cmd.Context(), bytes.NewReader(data))
			if err != nil {
				return err
			}
			total, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), map[string]any{
				"imported": imported,
				"skipped":  skipped,
				"total":    total,
			})
		},
	}

	cmd.AddCommand(export, importCmd)
	return cmd
}

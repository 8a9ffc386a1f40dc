package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/health-risk-server/internal/config"
	"github.com/health-risk-server/internal/domain"
)

// cli holds the global flags shared by every subcommand.
type cli struct {
	configFile string
	output     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:          "hractl",
		Short:        "Operate the health risk assessment services",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch c.output {
			case "json", "yaml":
				return nil
			default:
				return fmt.Errorf("unsupported output format %q (json or yaml)", c.output)
			}
		},
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "path to config.yaml (default: search ./, ./config, /etc/health-risk-server)")
	root.PersistentFlags().StringVarP(&c.output, "output", "o", "json", "output format: json or yaml")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level for diagnostic output on stderr")

	root.AddCommand(
		c.scoreCmd(),
		c.summarizeCmd(),
		c.migrateCmd(),
		c.reportsCmd(),
		c.mcpCmd(),
	)
	return root
}

// loadConfig reads and validates the server configuration.
func (c *cli) loadConfig() (*config.Manager, error) {
	m, err := config.NewManager(c.configFile)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return m, nil
}

func (c *cli) logger(cmd *cobra.Command) *logrus.Logger {
	logger := config.NewLogger(domain.LoggingConfig{Level: c.logLevel, Format: "text"})
	logger.SetOutput(cmd.ErrOrStderr())
	return logger
}

// print writes v in the selected format. YAML goes through JSON first so
// keys follow the json tags.
func (c *cli) print(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if c.output == "json" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}

// readInput returns the contents of path, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/Togather-Foundation/conflicts/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	serve := newServeCommand(opts)

	root := &cobra.Command{
		Use:   "server",
		Short: "Conflict events API server",
		Long: `Conflict events API server.

Serves authenticated access to recorded conflict events over HTTP, backed by
PostgreSQL or an embedded SQLite file. Running without a subcommand starts
the server.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (optional, environment variables take precedence)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, console) (default: json)")

	root.AddCommand(
		serve,
		newMigrateCommand(opts),
		newUserCommand(opts),
		newVersionCommand(),
		newHealthcheckCommand(),
	)
	return root
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(opts *globalOptions) (config.Config, error) {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
	return cfg, nil
}

func loadConfigAndLogger(opts *globalOptions) (config.Config, zerolog.Logger, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("config error: %w", err)
	}
	return cfg, config.NewLogger(cfg.Logging), nil
}

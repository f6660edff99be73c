package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Togather-Foundation/conflicts/internal/storage"
	"github.com/Togather-Foundation/conflicts/internal/storage/backend"
	"github.com/Togather-Foundation/conflicts/internal/storage/schema"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or roll back schema migrations against the configured backend.

The server applies pending migrations on start; these commands exist for
operators who manage schema changes separately.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), opts, func(db storage.Adapter, logger zerolog.Logger) error {
				if err := schema.MigrateUp(db, logger); err != nil {
					return err
				}
				return printVersion(cmd, db, logger)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			return withDatabase(cmd.Context(), opts, func(db storage.Adapter, logger zerolog.Logger) error {
				if err := schema.MigrateDown(db, steps, logger); err != nil {
					return err
				}
				return printVersion(cmd, db, logger)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), opts, func(db storage.Adapter, logger zerolog.Logger) error {
				return printVersion(cmd, db, logger)
			})
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, db storage.Adapter, logger zerolog.Logger) error {
	version, dirty, err := schema.Version(db, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}

// withDatabase opens the configured backend for the duration of fn.
func withDatabase(ctx context.Context, opts *globalOptions, fn func(storage.Adapter, zerolog.Logger) error) error {
	cfg, logger, err := loadConfigAndLogger(opts)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := backend.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer func() { _ = db.Close() }()
	return fn(db, logger)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/meetings-dashboard/internal/config"
	"github.com/example/meetings-dashboard/internal/logging"
	"github.com/example/meetings-dashboard/internal/persistence/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "dashboard:", err)
		os.Exit(1)
	}
}

// rootOptions carries what every subcommand needs once PersistentPreRunE
// has loaded the configuration.
type rootOptions struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "dashboard",
		Short:         "Meetings dashboard server",
		Long:          "Serves the meetings dashboard and manages its SQLite database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.configPath != "" {
				if err := os.Setenv("DASHBOARD_CONFIG", opts.configPath); err != nil {
					return err
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cmd.ErrOrStderr(), logging.Options{Format: cfg.LogFormat, Level: cfg.LogLevel})
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a TOML config file (overrides DASHBOARD_CONFIG)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newUsersCommand(opts))

	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := openStorage(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStorage(storage, opts.logger)
			fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", opts.cfg.SQLiteDSN)
			return nil
		},
	}
}

// openStorage connects to the configured database and applies migrations.
func openStorage(ctx context.Context, opts *rootOptions) (*sqlite.Storage, error) {
	storage, err := sqlite.OpenWithConfig(sqlite.DefaultConfig(opts.cfg.SQLiteDSN), opts.logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		closeStorage(storage, opts.logger)
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return storage, nil
}

func closeStorage(storage *sqlite.Storage, logger *slog.Logger) {
	if err := storage.Close(); err != nil {
		logger.Error("failed to close storage", "error", err)
	}
}

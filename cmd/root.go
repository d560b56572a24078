// Package cmd defines and implements the CLI commands for the
// storygraph executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	clocksystem "github.com/fanworks/storygraph/internal/clock/system"
	"github.com/fanworks/storygraph/internal/config"
	"github.com/fanworks/storygraph/internal/logging"
	"github.com/fanworks/storygraph/internal/storage"
	"github.com/fanworks/storygraph/internal/storage/memory"
	"github.com/fanworks/storygraph/internal/storage/mongodb"
	"github.com/fanworks/storygraph/internal/storage/postgres"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storygraph",
		Short: "Entity resolution service for scraped fan-fiction records",
		Long: `storygraph receives raw scraped records (stories, chapters, users,
reviews) and resolves them into a normalized, deduplicated entity graph.
Records may arrive in any order and any number of times; the result is
the same graph.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is environment only)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSeedCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads config and builds the logger shared by all commands.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// buildStore opens the configured backend.
func buildStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	clock := clocksystem.Clock{}
	switch cfg.Storage.Backend {
	case "memory":
		return memory.New(clock), nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.Storage.Postgres.DSN,
			MaxConns: cfg.Storage.Postgres.MaxConns,
			MinConns: cfg.Storage.Postgres.MinConns,
		}, clock)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate postgres store: %w", err)
		}
		return store, nil
	case "mongodb":
		store, err := mongodb.New(ctx, mongodb.Config{
			URI:      cfg.Storage.Mongo.URI,
			Database: cfg.Storage.Mongo.Database,
		}, clock)
		if err != nil {
			return nil, fmt.Errorf("open mongodb store: %w", err)
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("ensure mongodb indexes: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

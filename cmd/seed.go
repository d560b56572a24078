package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fanworks/storygraph/internal/seed"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert the static reference entities and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store, err := buildStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			return seed.Apply(cmd.Context(), store, logger)
		},
	}
}

package main

import (
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply store and queue schema migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		pool, err := store.NewPool(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer pool.Close()

		st := store.NewPostgresWithPool(pool)
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		zap.L().Info("store schema migrated")

		migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
		if err != nil {
			return eris.Wrap(err, "migrate: create queue migrator")
		}
		res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
		if err != nil {
			return eris.Wrap(err, "migrate: queue schema")
		}
		zap.L().Info("queue schema migrated", zap.Int("versions_applied", len(res.Versions)))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

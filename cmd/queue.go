package main

import (
	"github.com/riverqueue/river"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/jobs"
)

var queueRegion string

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Kick off the batch research controller for a region",
	Long: `Enqueues the first page of the self-chaining batch controller. The
controller schedules research jobs for eligible businesses with a stagger,
then reschedules itself until a short page signals the backlog is drained.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if _, err := env.Store.GetRegion(ctx, queueRegion); err != nil {
			return eris.Wrapf(err, "queue: region %s", queueRegion)
		}

		res, err := env.Queue.Insert(ctx, jobs.BatchArgs{RegionSlug: queueRegion}, &river.InsertOpts{
			UniqueOpts: river.UniqueOpts{ByArgs: true},
		})
		if err != nil {
			return eris.Wrap(err, "queue: insert batch job")
		}

		zap.L().Info("batch controller enqueued",
			zap.String("region", queueRegion),
			zap.Bool("already_queued", res.UniqueSkippedAsDuplicate),
		)
		return nil
	},
}

func init() {
	queueCmd.Flags().StringVar(&queueRegion, "region", "", "region slug (required)")
	_ = queueCmd.MarkFlagRequired("region")
	rootCmd.AddCommand(queueCmd)
}

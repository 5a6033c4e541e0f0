package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the queue worker pool and periodic scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Queue.Start(ctx); err != nil {
			return err
		}
		zap.L().Info("worker pool started")

		<-ctx.Done()
		zap.L().Info("draining workers")

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := env.Queue.Stop(stopCtx); err != nil {
			zap.L().Warn("worker drain incomplete", zap.Error(err))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

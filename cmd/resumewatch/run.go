package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and exit",
		Long:  `Fetches the search page, records new listings, writes the report and sends the new listings to Telegram. Exits non-zero only when the page cannot be fetched or the store cannot be used.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			a.logger.Info("🚀 Starting resume watch run...")
			summary, err := a.runner.Run(ctx)
			a.writeMetrics()
			if err != nil {
				a.logger.Error("❌ Run failed", zap.Error(err))
				return err
			}

			a.logger.Info("🏁 Execution finished.",
				zap.Int("candidates", len(summary.Result.Listings)),
				zap.Int("new", summary.NewCount()),
				zap.Int64("today", summary.Stats.Today),
				zap.Int64("total", summary.Stats.Total))
			return nil
		},
	}
}

// writeMetrics exports the registry when metrics_file is configured.
func (a *app) writeMetrics() {
	if a.cfg.MetricsFile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.logger.Warn("⚠️ Failed to write metrics file", zap.String("path", a.cfg.MetricsFile), zap.Error(err))
	}
}

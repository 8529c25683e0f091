package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go-resume-watch/internal/runner"
	"go-resume-watch/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline every interval and serve /healthz and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			state := &server.State{}
			router := server.NewRouter(state, a.metrics)

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.ListenAndServe(ctx, a.cfg.ListenAddr, router, a.logger)
			})
			g.Go(func() error {
				schedule(ctx, a.cfg.Interval, a.runner.Run, state, a.logger, a.writeMetrics)
				return nil
			})
			return g.Wait()
		},
	}
}

// runFunc is one pipeline pass, normally (*runner.Runner).Run.
type runFunc func(ctx context.Context) (*runner.Summary, error)

// schedule calls run now and then on every tick. Runs happen on this
// goroutine only, so they never overlap; a failed run does not stop the loop.
// afterRun, if set, is called after every run.
func schedule(ctx context.Context, interval time.Duration, run runFunc, state *server.State, logger *zap.Logger, afterRun func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		logger.Info("🚀 Starting scheduled run...")
		summary, err := run(ctx)
		state.Record(summary, err, time.Now())
		if afterRun != nil {
			afterRun()
		}
		if err != nil {
			logger.Error("❌ Run failed", zap.Error(err))
		} else {
			logger.Info("🏁 Run finished", zap.Int("new", summary.NewCount()), zap.Duration("next_in", interval))
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
		//a tick racing the cancel must not start another run
		if ctx.Err() != nil {
			logger.Info("🛑 Scheduler stopped")
			return
		}
	}
}

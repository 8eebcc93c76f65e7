package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewWorkerCommand creates the worker command
func NewWorkerCommand() *cobra.Command {
	var workers int
	var withoutScheduler bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run background job workers",
		Long: `Process queued jobs: verification, password reset and payment
emails, photo cleanup and the daily purge of finished jobs.

Use this with jobs.in_process set to false to run workers apart from
the HTTP API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if workers > 0 {
				cfg.Jobs.Workers = workers
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			return runWorkers(ctx, a, !withoutScheduler)
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "n", 0, "Number of workers (overrides jobs.workers)")
	cmd.Flags().BoolVar(&withoutScheduler, "no-scheduler", false, "Do not queue the periodic purge job")
	return cmd
}

// runWorkers processes jobs until ctx is done, then drains the pool
func runWorkers(ctx context.Context, a *app, schedule bool) error {
	pool := a.workers()
	pool.Start(ctx)

	if schedule {
		sched, err := a.scheduler()
		if err != nil {
			pool.Stop()
			return err
		}
		sched.Start(ctx)
		defer sched.Stop()
	}

	<-ctx.Done()
	a.logger.Info("worker shutting down", zap.String("queue", a.cfg.Jobs.Queue))

	drain, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return pool.Shutdown(drain)
}

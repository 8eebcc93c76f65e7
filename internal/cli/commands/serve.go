package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/resumate-app/resumate/internal/api"
	"github.com/resumate-app/resumate/internal/web/server"
	"github.com/resumate-app/resumate/internal/web/websocket"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var withoutWorkers bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the Resumate HTTP API and the editor WebSocket.

Unless jobs.in_process is false or --no-workers is given, the job
workers and the purge schedule run in the same process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if withoutWorkers {
				cfg.Jobs.InProcess = false
			}
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), a, cfg.Jobs.InProcess)
		},
	}

	cmd.Flags().BoolVar(&withoutWorkers, "no-workers", false, "Do not run job workers in this process")
	return cmd
}

// runServe serves until a shutdown signal and closes a on the way out
func runServe(ctx context.Context, a *app, inProcess bool) error {
	logger := a.logger
	pendingMigrations(ctx, a.db, logger)

	hub := websocket.NewHub()
	svc, err := a.services(ctx, hub)
	if err != nil {
		a.Close()
		return err
	}
	apiCfg, err := a.apiConfig()
	if err != nil {
		a.Close()
		return err
	}

	srv, err := server.New(a.cfg.Server, api.New(svc, apiCfg, logger).Handler(), logger)
	if err != nil {
		a.Close()
		return err
	}
	gs := server.NewGracefulShutdown(srv, a.cfg.Server.ShutdownTimeout, logger)
	gs.RegisterHook("websocket", hub.Shutdown)

	if inProcess {
		workCtx, cancel := context.WithCancel(context.Background())
		pool := a.workers()
		sched, err := a.scheduler()
		if err != nil {
			cancel()
			a.Close()
			return err
		}
		pool.Start(workCtx)
		sched.Start(workCtx)

		gs.RegisterHook("scheduler", func(context.Context) error {
			sched.Stop()
			return nil
		})
		gs.RegisterHook("workers", pool.Shutdown)
		gs.RegisterHook("worker-context", func(context.Context) error {
			cancel()
			return nil
		})
	}
	gs.RegisterHook("backends", func(context.Context) error {
		return a.Close()
	})

	return gs.Run(ctx)
}

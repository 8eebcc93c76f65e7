package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultShutdownTimeout bounds the whole shutdown sequence
const DefaultShutdownTimeout = 30 * time.Second

// ShutdownHook releases a resource during shutdown
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   ShutdownHook
}

// GracefulShutdown serves until a signal arrives, then drains the server
// and runs hooks in registration order
type GracefulShutdown struct {
	server  *Server
	timeout time.Duration
	signals []os.Signal
	logger  *zap.Logger

	mu    sync.Mutex
	hooks []namedHook
	once  sync.Once
	done  chan struct{}
	err   error
}

// NewGracefulShutdown handles SIGINT and SIGTERM with the given timeout
func NewGracefulShutdown(server *Server, timeout time.Duration, logger *zap.Logger) *GracefulShutdown {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GracefulShutdown{
		server:  server,
		timeout: timeout,
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// RegisterHook adds a hook run after the HTTP server has drained
func (gs *GracefulShutdown) RegisterHook(name string, hook ShutdownHook) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, namedHook{name: name, fn: hook})
}

// Run serves until ctx is cancelled, a shutdown signal arrives or the
// server fails, then shuts down
func (gs *GracefulShutdown) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, gs.signals...)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- gs.server.Serve()
	}()

	select {
	case <-ctx.Done():
		gs.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			gs.logger.Error("http server failed", zap.Error(err))
			_ = gs.Shutdown()
			return fmt.Errorf("serve: %w", err)
		}
	}
	return gs.Shutdown()
}

// Shutdown drains the server and runs the hooks once. Hook failures are
// logged and do not stop later hooks.
func (gs *GracefulShutdown) Shutdown() error {
	gs.once.Do(func() {
		defer close(gs.done)

		ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
		defer cancel()

		gs.logger.Info("shutting down", zap.Duration("timeout", gs.timeout))
		if err := gs.server.Shutdown(ctx); err != nil {
			gs.err = fmt.Errorf("server shutdown: %w", err)
			gs.logger.Error("http server shutdown failed", zap.Error(err))
		}

		gs.mu.Lock()
		hooks := append([]namedHook(nil), gs.hooks...)
		gs.mu.Unlock()

		for _, h := range hooks {
			if err := h.fn(ctx); err != nil {
				gs.logger.Warn("shutdown hook failed", zap.String("hook", h.name), zap.Error(err))
				continue
			}
			gs.logger.Debug("shutdown hook completed", zap.String("hook", h.name))
		}
		gs.logger.Info("shutdown complete")
	})

	<-gs.done
	return gs.err
}

// Wait blocks until shutdown is complete
func (gs *GracefulShutdown) Wait() error {
	<-gs.done
	return gs.err
}

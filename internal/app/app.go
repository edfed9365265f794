// Package app wires configuration, storage, the batch runner and the REST
// server together.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/cemaneige/internal/controllers/restserver"
	"github.com/chrissnell/cemaneige/internal/managers"
	"github.com/chrissnell/cemaneige/internal/runner"
	"github.com/chrissnell/cemaneige/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

func (a *App) openStorage(ctx context.Context) (*managers.StorageManager, *runner.Runner, error) {
	sm, err := managers.NewStorageManager(ctx, a.cfg.Storage, a.logger)
	if err != nil {
		return nil, nil, err
	}

	var r *runner.Runner
	if source := sm.Source(); source != nil {
		r = runner.New(source, sm.Sink(), a.cfg.Batch.Workers, a.logger.Named("runner"))
	} else {
		a.logger.Warn("no storage backend configured; site simulations are disabled")
	}
	return sm, r, nil
}

// Serve starts the REST server and blocks until shutdown
func (a *App) Serve(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sm, r, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	defer sm.Close()

	ctrl := restserver.NewController(ctx, &wg, a.cfg, r, sm.Reader(), sm.Health, a.logger.Named("rest"))
	if err := ctrl.StartController(); err != nil {
		return err
	}

	a.logger.Info("application started successfully")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	}

	cancel()

	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return nil
}

// RunSites simulates every configured site once, storing the results. A
// SIGINT or SIGTERM cancels the jobs that have not started yet.
func (a *App) RunSites(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(a.cfg.Sites) == 0 {
		return fmt.Errorf("no sites configured")
	}

	sm, r, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	defer sm.Close()

	if r == nil {
		return fmt.Errorf("a storage backend is required to run sites")
	}

	jobs := make([]runner.Job, len(a.cfg.Sites))
	for i, s := range a.cfg.Sites {
		jobs[i] = runner.Job{
			Site:    s.Name,
			Station: s.Station,
			Start:   s.Start,
			End:     s.End,
			Params:  s.Params,
		}
	}

	results, err := r.Run(ctx, jobs)
	succeeded := 0
	for _, res := range results {
		if res.Err == nil {
			succeeded++
		}
	}
	a.logger.Infof("%d of %d sites simulated", succeeded, len(jobs))

	return err
}

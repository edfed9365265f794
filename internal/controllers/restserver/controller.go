// Package restserver exposes the snow routine over HTTP.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/cemaneige/internal/log"
	"github.com/chrissnell/cemaneige/internal/runner"
	"github.com/chrissnell/cemaneige/internal/storage"
	"github.com/chrissnell/cemaneige/pkg/config"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller represents the REST server controller
type Controller struct {
	ctx       context.Context
	wg        *sync.WaitGroup
	cfg       *config.ConfigData
	Server    http.Server
	runner    *runner.Runner     // nil when no forcing source is configured
	melt      storage.MeltReader // nil when no backend can read runs back
	health    *storage.HealthManager
	logger    *zap.SugaredLogger
	handlers  *Handlers
	startedAt time.Time
}

// NewController creates a new REST server controller. r, melt and hm may be nil.
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, r *runner.Runner, melt storage.MeltReader, hm *storage.HealthManager, logger *zap.SugaredLogger) *Controller {
	if hm == nil {
		hm = storage.NewHealthManager()
	}

	ctrl := &Controller{
		ctx:       ctx,
		wg:        wg,
		cfg:       cfg,
		runner:    r,
		melt:      melt,
		health:    hm,
		logger:    logger,
		startedAt: time.Now(),
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", cfg.Server.ListenAddr, cfg.Server.Port)
	ctrl.Server.Handler = ctrl.Router()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	c.logger.Infof("starting REST server on %s", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		var err error
		if c.cfg.Server.TLSCertPath != "" && c.cfg.Server.TLSKeyPath != "" {
			err = c.Server.ListenAndServeTLS(c.cfg.Server.TLSCertPath, c.cfg.Server.TLSKeyPath)
		} else {
			err = c.Server.ListenAndServe()
		}
		if err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Router configures the HTTP router with all endpoints
func (c *Controller) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware(c.logger))

	router.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)
	router.HandleFunc("/bounds", c.handlers.GetBounds).Methods(http.MethodGet)
	router.HandleFunc("/bounds/check", c.handlers.CheckBounds).Methods(http.MethodPost)
	router.HandleFunc("/simulate", c.handlers.Simulate).Methods(http.MethodPost)
	router.HandleFunc("/sites", c.handlers.GetSites).Methods(http.MethodGet)
	router.HandleFunc("/sites/{site}/melt", c.handlers.GetSiteMelt).Methods(http.MethodGet)
	router.HandleFunc("/sites/{site}/melt", c.handlers.RunSiteMelt).Methods(http.MethodPost)

	return router
}

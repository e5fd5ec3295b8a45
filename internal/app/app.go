// Package app provides the application container wiring all dependencies.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/haierkeys/holarchy-browser-service/internal/service"
	"github.com/haierkeys/holarchy-browser-service/internal/sse"
	"github.com/haierkeys/holarchy-browser-service/internal/store"
	"github.com/haierkeys/holarchy-browser-service/pkg/workerpool"
	"github.com/haierkeys/holarchy-browser-service/pkg/writequeue"

	"go.uber.org/zap"
)

// App owns every long-lived component and controls shutdown ordering.
type App struct {
	config *AppConfig
	logger *zap.Logger

	Store store.PageStore

	workerPool    *workerpool.Pool
	writeQueueMgr *writequeue.Manager
	broadcaster   *sse.Broadcaster

	PageService  service.PageService
	SyncService  service.SyncService
	TrustService service.TrustService

	StartTime time.Time
}

// NewApp builds the container: write queue, store (with backend probe),
// broadcaster, then the services on top.
func NewApp(cfg *AppConfig, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	a := &App{
		config:    cfg,
		logger:    logger,
		StartTime: time.Now(),
	}

	wpConfig := cfg.GetWorkerPoolConfig()
	a.workerPool = workerpool.New(&wpConfig, logger)

	wqConfig := cfg.GetWriteQueueConfig()
	a.writeQueueMgr = writequeue.New(&wqConfig, logger)

	pageStore, err := store.Open(cfg.Database, logger, a.writeQueueMgr)
	if err != nil {
		return nil, err
	}
	a.Store = pageStore

	a.broadcaster = sse.NewBroadcaster(logger)

	a.PageService = service.NewPageService(a.Store, a.broadcaster, a.workerPool, logger)
	a.SyncService = service.NewSyncService(a.Store, a.broadcaster, a.workerPool, logger)
	a.TrustService = service.NewTrustService(logger)

	logger.Info("app container initialized",
		zap.String("backend", a.Store.Name()),
		zap.Int("workerPoolMaxWorkers", wpConfig.MaxWorkers),
		zap.Int("writeQueueCapacity", wqConfig.QueueCapacity))

	return a, nil
}

func (a *App) Config() *AppConfig { return a.config }

func (a *App) Logger() *zap.Logger { return a.logger }

func (a *App) Broadcaster() *sse.Broadcaster { return a.broadcaster }

// Close drains in dependency order: stop accepting work, flush queued
// writes, drop subscribers, then release the store.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.workerPool.Shutdown(ctx); err != nil {
		a.logger.Warn("worker pool shutdown incomplete", zap.Error(err))
	}
	if err := a.writeQueueMgr.Shutdown(ctx); err != nil {
		a.logger.Warn("write queue shutdown incomplete", zap.Error(err))
	}
	a.broadcaster.Close()
	if err := a.Store.Close(); err != nil {
		return err
	}
	a.logger.Info("app container closed")
	return nil
}

package task

import (
	"github.com/haierkeys/holarchy-browser-service/internal/app"
	"github.com/haierkeys/holarchy-browser-service/pkg/safeclose"

	"go.uber.org/zap"
)

// Manager creates and registers the background tasks.
type Manager struct {
	scheduler *Scheduler
	logger    *zap.Logger
}

func NewManager(logger *zap.Logger, sc *safeclose.SafeClose) *Manager {
	return &Manager{
		scheduler: NewScheduler(logger, sc),
		logger:    logger,
	}
}

// RegisterTasks builds every configured task.
func (m *Manager) RegisterTasks(a *app.App) error {
	snapshotTask, err := NewSnapshotTask(a)
	if err != nil {
		m.logger.Warn("failed to create snapshot task", zap.Error(err))
		return err
	}
	if snapshotTask != nil {
		m.scheduler.AddTask(snapshotTask)
	} else {
		m.logger.Info("snapshot task disabled")
	}
	return nil
}

func (m *Manager) Start() {
	m.scheduler.Start()
}

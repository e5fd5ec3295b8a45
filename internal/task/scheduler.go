// Package task runs background jobs on their own schedules.
package task

import (
	"context"
	"time"

	"github.com/haierkeys/holarchy-browser-service/pkg/safeclose"

	"go.uber.org/zap"
)

// Task is one scheduled background job.
type Task interface {
	Name() string
	Run(ctx context.Context) error
	// NextRun reports when the task should fire next, from now.
	// A non-positive duration disables the loop.
	NextRun(now time.Time) time.Duration
	IsStartupRun() bool
}

// Scheduler drives each registered task on its own goroutine, tied to
// the shutdown fan-in.
type Scheduler struct {
	logger *zap.Logger
	tasks  []Task
	sc     *safeclose.SafeClose
}

func NewScheduler(logger *zap.Logger, sc *safeclose.SafeClose) *Scheduler {
	return &Scheduler{
		logger: logger,
		tasks:  make([]Task, 0),
		sc:     sc,
	}
}

func (s *Scheduler) AddTask(task Task) {
	s.tasks = append(s.tasks, task)
}

func (s *Scheduler) Start() {
	if len(s.tasks) == 0 {
		s.logger.Info("no tasks to schedule")
		return
	}
	s.logger.Info("tasks starting", zap.Int("count", len(s.tasks)))
	for _, task := range s.tasks {
		s.startTask(task)
	}
}

func (s *Scheduler) runOnce(task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panic",
				zap.String("name", task.Name()),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()
	s.logger.Info("task running", zap.String("name", task.Name()))
	if err := task.Run(context.Background()); err != nil {
		s.logger.Error("task failed",
			zap.String("name", task.Name()),
			zap.Error(err))
	}
}

func (s *Scheduler) startTask(task Task) {
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()

		if task.IsStartupRun() {
			s.runOnce(task)
		}

		wait := task.NextRun(time.Now())
		if wait <= 0 {
			return
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()

		for {
			select {
			case <-timer.C:
				s.runOnce(task)
				wait = task.NextRun(time.Now())
				if wait <= 0 {
					s.logger.Info("task schedule exhausted", zap.String("name", task.Name()))
					return
				}
				timer.Reset(wait)
			case <-closeSignal:
				s.logger.Info("task stopped", zap.String("name", task.Name()))
				return
			}
		}
	})
}

package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haierkeys/holarchy-browser-service/pkg/safeclose"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTask struct {
	runs      atomic.Int64
	interval  time.Duration
	startup   bool
	panicking bool
}

func (t *fakeTask) Name() string { return "fake" }

func (t *fakeTask) IsStartupRun() bool { return t.startup }

func (t *fakeTask) NextRun(now time.Time) time.Duration { return t.interval }

func (t *fakeTask) Run(ctx context.Context) error {
	t.runs.Add(1)
	if t.panicking {
		panic("boom")
	}
	return nil
}

func TestScheduler_StartupRunAndLoop(t *testing.T) {
	sc := safeclose.New()
	s := NewScheduler(zap.NewNop(), sc)

	task := &fakeTask{interval: 10 * time.Millisecond, startup: true}
	s.AddTask(task)
	s.Start()

	require.Eventually(t, func() bool {
		return task.runs.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	sc.SendCloseSignal(nil)
	require.NoError(t, sc.WaitClosed())
}

func TestScheduler_PanicDoesNotStopLoop(t *testing.T) {
	sc := safeclose.New()
	s := NewScheduler(zap.NewNop(), sc)

	task := &fakeTask{interval: 10 * time.Millisecond, panicking: true}
	s.AddTask(task)
	s.Start()

	require.Eventually(t, func() bool {
		return task.runs.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	sc.SendCloseSignal(nil)
	require.NoError(t, sc.WaitClosed())
}

func TestScheduler_NonPositiveIntervalRunsStartupOnly(t *testing.T) {
	sc := safeclose.New()
	s := NewScheduler(zap.NewNop(), sc)

	task := &fakeTask{interval: 0, startup: true}
	s.AddTask(task)
	s.Start()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), task.runs.Load())

	sc.SendCloseSignal(nil)
	require.NoError(t, sc.WaitClosed())
}

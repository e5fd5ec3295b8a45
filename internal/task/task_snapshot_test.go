package task

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haierkeys/holarchy-browser-service/internal/service"
	"github.com/haierkeys/holarchy-browser-service/internal/sse"
	"github.com/haierkeys/holarchy-browser-service/internal/store"
	"github.com/haierkeys/holarchy-browser-service/pkg/writequeue"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSnapshotFixture(t *testing.T, keep int) (*SnapshotTask, store.PageStore) {
	t.Helper()
	logger := zap.NewNop()
	wq := writequeue.New(nil, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = wq.Shutdown(ctx)
	})
	s, err := store.NewFileStore(filepath.Join(t.TempDir(), "pages.json"), logger, wq)
	require.NoError(t, err)

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse("0 3 * * *")
	require.NoError(t, err)

	return &SnapshotTask{
		sync:     service.NewSyncService(s, sse.NewBroadcaster(logger), nil, logger),
		schedule: schedule,
		dir:      t.TempDir(),
		keep:     keep,
		log:      logger,
	}, s
}

func TestSnapshotTask_WritesExportFile(t *testing.T) {
	ctx := context.Background()
	task, s := newSnapshotFixture(t, 7)

	_, err := s.Create(ctx, store.CreateFields{Title: "kept"})
	require.NoError(t, err)

	require.NoError(t, task.Run(ctx))

	entries, err := os.ReadDir(task.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	raw, err := os.ReadFile(filepath.Join(task.dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"kept"`)
	assert.Contains(t, string(raw), `"exportedAt"`)
}

func TestSnapshotTask_PrunesOldFiles(t *testing.T) {
	ctx := context.Background()
	task, _ := newSnapshotFixture(t, 2)

	for i := 0; i < 3; i++ {
		name := snapshotPrefix + time.Now().Add(time.Duration(i)*time.Hour).UTC().Format("20060102T150405Z") + ".json"
		require.NoError(t, os.WriteFile(filepath.Join(task.dir, name), []byte("{}"), 0644))
	}

	require.NoError(t, task.Run(ctx))

	entries, err := os.ReadDir(task.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSnapshotTask_NextRunPositive(t *testing.T) {
	task, _ := newSnapshotFixture(t, 7)
	assert.Greater(t, task.NextRun(time.Now()), time.Duration(0))
}

package task

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/haierkeys/holarchy-browser-service/internal/app"
	"github.com/haierkeys/holarchy-browser-service/internal/service"
	"github.com/haierkeys/holarchy-browser-service/pkg/fileurl"
	"github.com/haierkeys/holarchy-browser-service/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const snapshotPrefix = "pages-"

// SnapshotTask periodically writes a full page export to disk and
// prunes old snapshot files.
type SnapshotTask struct {
	sync     service.SyncService
	schedule cron.Schedule
	dir      string
	keep     int
	log      *zap.Logger
}

// NewSnapshotTask parses the cron schedule from config. A disabled or
// misconfigured snapshot section yields a nil task.
func NewSnapshotTask(a *app.App) (*SnapshotTask, error) {
	cfg := a.Config().Snapshot
	if !cfg.Enabled {
		return nil, nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	keep := cfg.Keep
	if keep <= 0 {
		keep = 7
	}
	return &SnapshotTask{
		sync:     a.SyncService,
		schedule: schedule,
		dir:      cfg.Dir,
		keep:     keep,
		log:      a.Logger(),
	}, nil
}

func (t *SnapshotTask) Name() string { return "snapshot" }

func (t *SnapshotTask) IsStartupRun() bool { return false }

func (t *SnapshotTask) NextRun(now time.Time) time.Duration {
	return t.schedule.Next(now).Sub(now)
}

func (t *SnapshotTask) Run(ctx context.Context) error {
	res, err := t.sync.Export(ctx)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	name := snapshotPrefix + time.Now().UTC().Format("20060102T150405Z") + ".json"
	path := filepath.Join(t.dir, name)
	if err := fileurl.CreatePath(path, os.FileMode(0755)); err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return err
	}
	t.log.Info("snapshot written",
		zap.String("path", path),
		zap.Int(logger.FieldBatchSize, len(res.Rows)))

	return t.prune()
}

// prune deletes the oldest snapshots beyond the retention count.
func (t *SnapshotTask) prune() error {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), snapshotPrefix) && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= t.keep {
		return nil
	}
	sort.Strings(names)
	for _, name := range names[:len(names)-t.keep] {
		if err := os.Remove(filepath.Join(t.dir, name)); err != nil {
			t.log.Warn("snapshot prune failed",
				zap.String("file", name), zap.Error(err))
		}
	}
	return nil
}

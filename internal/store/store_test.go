package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haierkeys/holarchy-browser-service/internal/model"
	"github.com/haierkeys/holarchy-browser-service/pkg/timex"
	"github.com/haierkeys/holarchy-browser-service/pkg/writequeue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStores(t *testing.T) map[string]PageStore {
	t.Helper()
	logger := zap.NewNop()
	wq := writequeue.New(nil, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = wq.Shutdown(ctx)
	})

	dir := t.TempDir()
	fs, err := NewFileStore(filepath.Join(dir, "pages.json"), logger, wq)
	require.NoError(t, err)
	gs, err := NewGormStore(filepath.Join(dir, "pages.db"), logger, wq)
	require.NoError(t, err)
	t.Cleanup(func() { _ = gs.Close() })

	return map[string]PageStore{"file": fs, "sqlite": gs}
}

func TestPageStore_CreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			page, err := s.Create(ctx, CreateFields{Title: "Alpha", Content: "one"})
			require.NoError(t, err)
			assert.Equal(t, int64(1), page.ID)
			assert.Equal(t, int64(1), page.Rev)

			got, err := s.Get(ctx, page.ID)
			require.NoError(t, err)
			assert.Equal(t, "Alpha", got.Title)

			title := "Beta"
			updated, err := s.Update(ctx, page.ID, UpdateFields{Title: &title})
			require.NoError(t, err)
			assert.Equal(t, "Beta", updated.Title)
			assert.Equal(t, "one", updated.Content)
			assert.Equal(t, int64(2), updated.Rev)

			found, err := s.SoftDelete(ctx, page.ID)
			require.NoError(t, err)
			assert.True(t, found)

			_, err = s.Get(ctx, page.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			found, err = s.SoftDelete(ctx, int64(999))
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestPageStore_CreateDefaultsTitle(t *testing.T) {
	ctx := context.Background()
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			page, err := s.Create(ctx, CreateFields{Content: "body"})
			require.NoError(t, err)
			assert.Equal(t, "Untitled", page.Title)
		})
	}
}

func TestPageStore_ListExcludesDeleted(t *testing.T) {
	ctx := context.Background()
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			a, err := s.Create(ctx, CreateFields{Title: "A"})
			require.NoError(t, err)
			_, err = s.Create(ctx, CreateFields{Title: "B"})
			require.NoError(t, err)
			_, err = s.SoftDelete(ctx, a.ID)
			require.NoError(t, err)

			pages, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, pages, 1)
			assert.Equal(t, "B", pages[0].Title)
		})
	}
}

func TestPageStore_ChangesSince(t *testing.T) {
	ctx := context.Background()
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			a, err := s.Create(ctx, CreateFields{Title: "A"})
			require.NoError(t, err)
			_, err = s.SoftDelete(ctx, a.ID)
			require.NoError(t, err)

			cutoff := timex.Time(a.UpdatedAt.Time().Add(time.Hour))
			futureTitle := "late"
			futureAt := timex.Time(a.UpdatedAt.Time().Add(2 * time.Hour))
			b, err := s.Create(ctx, CreateFields{Title: "B"})
			require.NoError(t, err)
			_, err = s.Update(ctx, b.ID, UpdateFields{Title: &futureTitle, UpdatedAt: &futureAt})
			require.NoError(t, err)

			// A nil cursor returns the full set, tombstones included.
			all, err := s.ChangesSince(ctx, nil)
			require.NoError(t, err)
			require.Len(t, all, 2)

			changed, err := s.ChangesSince(ctx, &cutoff)
			require.NoError(t, err)
			require.Len(t, changed, 1)
			assert.Equal(t, b.ID, changed[0].ID)
		})
	}
}

func TestPageStore_ChangesSinceIsStrictlyAfter(t *testing.T) {
	ctx := context.Background()
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			p, err := s.Create(ctx, CreateFields{Title: "A"})
			require.NoError(t, err)

			at := p.UpdatedAt
			changed, err := s.ChangesSince(ctx, &at)
			require.NoError(t, err)
			assert.Empty(t, changed)
		})
	}
}

func TestPageStore_RunBatchInsertHonorsPositiveIDs(t *testing.T) {
	ctx := context.Background()
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			now := timex.Now()
			err := s.RunBatch(ctx, func(b Batch) error {
				return b.Insert(&model.Page{
					ID: 5, Title: "five", Rev: 1,
					CreatedAt: now, UpdatedAt: now,
				})
			})
			require.NoError(t, err)

			got, err := s.Get(ctx, 5)
			require.NoError(t, err)
			assert.Equal(t, "five", got.Title)

			// The id counter moved past the explicit id.
			next, err := s.Create(ctx, CreateFields{Title: "six"})
			require.NoError(t, err)
			assert.Equal(t, int64(6), next.ID)
		})
	}
}

func TestPageStore_RunBatchAssignsZeroIDs(t *testing.T) {
	ctx := context.Background()
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			now := timex.Now()
			var inserted model.Page
			err := s.RunBatch(ctx, func(b Batch) error {
				inserted = model.Page{Title: "auto", Rev: 1, CreatedAt: now, UpdatedAt: now}
				return b.Insert(&inserted)
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), inserted.ID)
		})
	}
}

func TestPageStore_RunBatchRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Create(ctx, CreateFields{Title: "keep"})
			require.NoError(t, err)

			wantErr := assert.AnError
			err = s.RunBatch(ctx, func(b Batch) error {
				if err := b.Clear(); err != nil {
					return err
				}
				return wantErr
			})
			assert.ErrorIs(t, err, wantErr)

			pages, err := s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, pages, 1)
		})
	}
}

func TestPageStore_RunBatchClearResetsCounter(t *testing.T) {
	ctx := context.Background()
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Create(ctx, CreateFields{Title: "A"})
			require.NoError(t, err)
			_, err = s.Create(ctx, CreateFields{Title: "B"})
			require.NoError(t, err)

			err = s.RunBatch(ctx, func(b Batch) error { return b.Clear() })
			require.NoError(t, err)

			p, err := s.Create(ctx, CreateFields{Title: "fresh"})
			require.NoError(t, err)
			assert.Equal(t, int64(1), p.ID)
		})
	}
}

func TestFileStore_ResetsCorruptFile(t *testing.T) {
	logger := zap.NewNop()
	wq := writequeue.New(nil, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = wq.Shutdown(ctx)
	}()

	path := filepath.Join(t.TempDir(), "pages.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := NewFileStore(path, logger, wq)
	require.NoError(t, err)

	pages, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	logger := zap.NewNop()
	wq := writequeue.New(nil, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = wq.Shutdown(ctx)
	}()

	path := filepath.Join(t.TempDir(), "pages.json")
	s, err := NewFileStore(path, logger, wq)
	require.NoError(t, err)
	_, err = s.Create(context.Background(), CreateFields{Title: "persisted"})
	require.NoError(t, err)

	reopened, err := NewFileStore(path, logger, wq)
	require.NoError(t, err)
	pages, err := reopened.List(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "persisted", pages[0].Title)
}

func TestPageStore_UpdatedAtStrictlyAdvances(t *testing.T) {
	ctx := context.Background()
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			page, err := s.Create(ctx, CreateFields{Title: "tick"})
			require.NoError(t, err)

			title := "tock"
			first, err := s.Update(ctx, page.ID, UpdateFields{Title: &title})
			require.NoError(t, err)
			second, err := s.Update(ctx, page.ID, UpdateFields{Title: &title})
			require.NoError(t, err)

			// Back-to-back mutations never share a timestamp, so an
			// incremental pull anchored at the first write still sees
			// the second.
			assert.True(t, first.UpdatedAt.After(page.UpdatedAt))
			assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

			changes, err := s.ChangesSince(ctx, &first.UpdatedAt)
			require.NoError(t, err)
			require.Len(t, changes, 1)
			assert.Equal(t, second.UpdatedAt.UnixMilli(), changes[0].UpdatedAt.UnixMilli())

			deleted, err := s.SoftDelete(ctx, page.ID)
			require.NoError(t, err)
			require.True(t, deleted)
			changes, err = s.ChangesSince(ctx, &second.UpdatedAt)
			require.NoError(t, err)
			require.Len(t, changes, 1)
			assert.True(t, changes[0].UpdatedAt.After(second.UpdatedAt))
		})
	}
}

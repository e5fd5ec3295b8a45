package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/haierkeys/holarchy-browser-service/internal/dto"
	"github.com/haierkeys/holarchy-browser-service/internal/sse"
	"github.com/haierkeys/holarchy-browser-service/internal/store"
	"github.com/haierkeys/holarchy-browser-service/pkg/errors"
	"github.com/haierkeys/holarchy-browser-service/pkg/workerpool"
	"github.com/haierkeys/holarchy-browser-service/pkg/writequeue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPageFixture(t *testing.T) (PageService, *sse.Broadcaster) {
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
	b := sse.NewBroadcaster(logger)
	return NewPageService(s, b, nil, logger), b
}

func TestPageService_CreateBroadcastsRow(t *testing.T) {
	ctx := context.Background()
	svc, b := newPageFixture(t)
	_, ch := b.Subscribe()

	page, err := svc.Create(ctx, &dto.PageCreateRequest{Title: "Notes", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.ID)

	select {
	case raw := <-ch:
		assert.Contains(t, string(raw), `"action":"created"`)
		assert.Contains(t, string(raw), `"title":"Notes"`)
	case <-time.After(time.Second):
		t.Fatal("no create event broadcast")
	}
}

func TestPageService_GetMissingIsNotFound(t *testing.T) {
	svc, _ := newPageFixture(t)
	_, err := svc.Get(context.Background(), 42)
	assert.True(t, errors.IsNotFound(err))
}

func TestPageService_UpdateHonorsClientTimestamp(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPageFixture(t)

	page, err := svc.Create(ctx, &dto.PageCreateRequest{Title: "T"})
	require.NoError(t, err)

	at := time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339)
	title := "offline edit"
	updated, err := svc.Update(ctx, page.ID, &dto.PageUpdateRequest{Title: &title, UpdatedAt: &at})
	require.NoError(t, err)
	assert.Equal(t, at, updated.UpdatedAt.Time().UTC().Format(time.RFC3339))
	assert.Equal(t, int64(2), updated.Rev)
}

func TestPageService_UpdateRejectsBadTimestamp(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPageFixture(t)

	page, err := svc.Create(ctx, &dto.PageCreateRequest{Title: "T"})
	require.NoError(t, err)

	bad := "yesterday-ish"
	_, err = svc.Update(ctx, page.ID, &dto.PageUpdateRequest{UpdatedAt: &bad})
	require.Error(t, err)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.HTTPStatus())
}

func TestPageService_DeleteThenGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPageFixture(t)

	page, err := svc.Create(ctx, &dto.PageCreateRequest{Title: "T"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, page.ID))

	_, err = svc.Get(ctx, page.ID)
	assert.True(t, errors.IsNotFound(err))

	// Tombstones can be deleted again; only unknown ids 404.
	assert.NoError(t, svc.Delete(ctx, page.ID))
	assert.True(t, errors.IsNotFound(svc.Delete(ctx, 999)))
}

func TestPageService_PoolDispatchesBroadcasts(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	wq := writequeue.New(nil, logger)
	pool := workerpool.New(nil, logger)
	t.Cleanup(func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Shutdown(cctx)
		_ = wq.Shutdown(cctx)
	})
	s, err := store.NewFileStore(filepath.Join(t.TempDir(), "pages.json"), logger, wq)
	require.NoError(t, err)
	b := sse.NewBroadcaster(logger)
	svc := NewPageService(s, b, pool, logger)

	_, ch := b.Subscribe()
	_, err = svc.Create(ctx, &dto.PageCreateRequest{Title: "Pooled"})
	require.NoError(t, err)

	select {
	case raw := <-ch:
		assert.Contains(t, string(raw), `"action":"created"`)
		assert.Contains(t, string(raw), `"title":"Pooled"`)
	case <-time.After(2 * time.Second):
		t.Fatal("pool never delivered the broadcast")
	}
}

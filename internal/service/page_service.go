// Package service implements the business logic layer.
package service

import (
	"context"

	"github.com/haierkeys/holarchy-browser-service/internal/dto"
	"github.com/haierkeys/holarchy-browser-service/internal/model"
	"github.com/haierkeys/holarchy-browser-service/internal/sse"
	"github.com/haierkeys/holarchy-browser-service/internal/store"
	"github.com/haierkeys/holarchy-browser-service/pkg/errors"
	"github.com/haierkeys/holarchy-browser-service/pkg/logger"
	"github.com/haierkeys/holarchy-browser-service/pkg/timex"
	"github.com/haierkeys/holarchy-browser-service/pkg/workerpool"

	"go.uber.org/zap"
)

// PageSummary is the list row shape: no content, no sync bookkeeping.
type PageSummary struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	CreatedAt timex.Time `json:"created_at"`
	UpdatedAt timex.Time `json:"updated_at"`
}

// PageService covers the page CRUD surface.
type PageService interface {
	List(ctx context.Context) ([]*PageSummary, error)
	Get(ctx context.Context, id int64) (*model.Page, error)
	Create(ctx context.Context, params *dto.PageCreateRequest) (*model.Page, error)
	Update(ctx context.Context, id int64, params *dto.PageUpdateRequest) (*model.Page, error)
	Delete(ctx context.Context, id int64) error
}

type pageService struct {
	store       store.PageStore
	broadcaster *sse.Broadcaster
	pool        *workerpool.Pool
	log         *zap.Logger
}

// NewPageService builds the page CRUD service. A non-nil pool moves
// post-commit broadcast fan-out off the request goroutine.
func NewPageService(s store.PageStore, b *sse.Broadcaster, pool *workerpool.Pool, log *zap.Logger) PageService {
	return &pageService{store: s, broadcaster: b, pool: pool, log: log}
}

// publish fans the event out through the worker pool, falling back to an
// inline broadcast when no pool is configured or it cannot take the task.
func (svc *pageService) publish(ev sse.Event) {
	// Stamp at commit time, not at dispatch time.
	if ev.ServerTime.IsZero() {
		ev.ServerTime = timex.Now()
	}
	if svc.pool != nil {
		err := svc.pool.SubmitAsync(context.Background(), func(context.Context) error {
			svc.broadcaster.Broadcast(ev)
			return nil
		})
		if err == nil {
			return
		}
	}
	svc.broadcaster.Broadcast(ev)
}

func (svc *pageService) List(ctx context.Context) ([]*PageSummary, error) {
	pages, err := svc.store.List(ctx)
	if err != nil {
		return nil, errors.StorageFailure("list pages", err)
	}
	out := make([]*PageSummary, 0, len(pages))
	for _, p := range pages {
		out = append(out, &PageSummary{
			ID:        p.ID,
			Title:     p.Title,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return out, nil
}

func (svc *pageService) Get(ctx context.Context, id int64) (*model.Page, error) {
	page, err := svc.store.Get(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, errors.NotFound("Not found")
		}
		return nil, errors.StorageFailure("get page", err)
	}
	return page, nil
}

func (svc *pageService) Create(ctx context.Context, params *dto.PageCreateRequest) (*model.Page, error) {
	page, err := svc.store.Create(ctx, store.CreateFields{
		Title:   params.Title,
		Content: params.Content,
	})
	if err != nil {
		return nil, errors.StorageFailure("create page", err)
	}
	svc.log.Info("page created",
		zap.Int64(logger.FieldPageID, page.ID),
		zap.String(logger.FieldBackend, svc.store.Name()))
	svc.publish(sse.Event{Type: "page", Action: "created", Row: page})
	return page, nil
}

func (svc *pageService) Update(ctx context.Context, id int64, params *dto.PageUpdateRequest) (*model.Page, error) {
	patch := store.UpdateFields{
		Title:   params.Title,
		Content: params.Content,
	}
	if params.UpdatedAt != nil {
		at, err := timex.Parse(*params.UpdatedAt)
		if err != nil {
			return nil, errors.MalformedInput("invalid updated_at", err)
		}
		patch.UpdatedAt = &at
	}
	page, err := svc.store.Update(ctx, id, patch)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, errors.NotFound("Not found")
		}
		return nil, errors.StorageFailure("update page", err)
	}
	svc.publish(sse.Event{Type: "page", Action: "updated", Row: page})
	return page, nil
}

func (svc *pageService) Delete(ctx context.Context, id int64) error {
	found, err := svc.store.SoftDelete(ctx, id)
	if err != nil {
		return errors.StorageFailure("delete page", err)
	}
	if !found {
		return errors.NotFound("Not found")
	}
	svc.log.Info("page deleted", zap.Int64(logger.FieldPageID, id))
	svc.publish(sse.Event{Type: "page", Action: "deleted", ID: id})
	return nil
}

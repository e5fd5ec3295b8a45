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

// ChangesResult is the incremental pull response: every record touched
// after the cursor, tombstones included, plus the server clock the
// client stores as its next cursor.
type ChangesResult struct {
	ServerTime timex.Time    `json:"serverTime"`
	Changes    []*model.Page `json:"changes"`
}

// ExportResult is the full backup shape.
type ExportResult struct {
	ExportedAt timex.Time    `json:"exportedAt"`
	Rows       []*model.Page `json:"rows"`
}

// SyncService covers batch reconciliation and backup transfer.
type SyncService interface {
	ChangesSince(ctx context.Context, since *timex.Time) (*ChangesResult, error)
	MergeBatch(ctx context.Context, items []dto.ChangeRecord) (timex.Time, error)
	Export(ctx context.Context) (*ExportResult, error)
	Import(ctx context.Context, rows []dto.ChangeRecord, replace bool) error
}

type syncService struct {
	store       store.PageStore
	broadcaster *sse.Broadcaster
	pool        *workerpool.Pool
	log         *zap.Logger
}

// NewSyncService builds the reconciliation service. A non-nil pool moves
// post-commit broadcast fan-out off the request goroutine.
func NewSyncService(s store.PageStore, b *sse.Broadcaster, pool *workerpool.Pool, log *zap.Logger) SyncService {
	return &syncService{store: s, broadcaster: b, pool: pool, log: log}
}

func (svc *syncService) publish(ev sse.Event) {
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

func (svc *syncService) ChangesSince(ctx context.Context, since *timex.Time) (*ChangesResult, error) {
	changes, err := svc.store.ChangesSince(ctx, since)
	if err != nil {
		return nil, errors.StorageFailure("read changes", err)
	}
	if changes == nil {
		changes = []*model.Page{}
	}
	return &ChangesResult{ServerTime: timex.Now(), Changes: changes}, nil
}

// recordTime resolves the effective updated timestamp of a pushed
// record, defaulting to the server clock when the client sent none.
func recordTime(r *dto.ChangeRecord) (timex.Time, error) {
	if r.UpdatedAt == nil || *r.UpdatedAt == "" {
		return timex.Now(), nil
	}
	return timex.Parse(*r.UpdatedAt)
}

// MergeBatch applies pushed records one at a time against the evolving
// state, so duplicate ids inside one batch resolve the same way they
// would across two batches. A known id only changes when the pushed
// timestamp is strictly later than the stored one.
func (svc *syncService) MergeBatch(ctx context.Context, items []dto.ChangeRecord) (timex.Time, error) {
	err := svc.store.RunBatch(ctx, func(b store.Batch) error {
		for i := range items {
			if err := mergeOne(b, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return timex.Time{}, err
	}
	serverTime := timex.Now()
	svc.log.Info("sync batch merged",
		zap.Int(logger.FieldBatchSize, len(items)),
		zap.String(logger.FieldBackend, svc.store.Name()))
	svc.publish(sse.Event{Type: "sync", ServerTime: serverTime})
	return serverTime, nil
}

func mergeOne(b store.Batch, r *dto.ChangeRecord) error {
	at, err := recordTime(r)
	if err != nil {
		return errors.MalformedInput("invalid updated_at", err)
	}

	existing, err := b.GetAny(r.ID.Int64())
	if err != nil && !store.IsNotFound(err) {
		return errors.StorageFailure("merge lookup", err)
	}

	if existing != nil {
		if !at.After(existing.UpdatedAt) {
			return nil
		}
		if r.Title != nil {
			existing.Title = *r.Title
		}
		if r.Content != nil {
			existing.Content = *r.Content
		}
		if r.Rev != nil {
			existing.Rev = *r.Rev
		}
		if r.Deleted != nil {
			existing.Deleted = *r.Deleted
		}
		existing.UpdatedAt = at
		if err := b.Overwrite(existing); err != nil {
			return errors.StorageFailure("merge overwrite", err)
		}
		return nil
	}

	page := recordToPage(r, at)
	if err := b.Insert(page); err != nil {
		return errors.StorageFailure("merge insert", err)
	}
	return nil
}

func recordToPage(r *dto.ChangeRecord, at timex.Time) *model.Page {
	page := &model.Page{
		ID:        r.ID.Int64(),
		Title:     "Untitled",
		Rev:       1,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if page.ID < 0 {
		page.ID = 0
	}
	if r.Title != nil && *r.Title != "" {
		page.Title = *r.Title
	}
	if r.Content != nil {
		page.Content = *r.Content
	}
	if r.Rev != nil && *r.Rev > 0 {
		page.Rev = *r.Rev
	}
	if r.Deleted != nil {
		page.Deleted = *r.Deleted
	}
	if r.CreatedAt != nil {
		if created, err := timex.Parse(*r.CreatedAt); err == nil {
			page.CreatedAt = created
		}
	}
	return page
}

func (svc *syncService) Export(ctx context.Context) (*ExportResult, error) {
	rows, err := svc.store.ExportAll(ctx)
	if err != nil {
		return nil, errors.StorageFailure("export pages", err)
	}
	if rows == nil {
		rows = []*model.Page{}
	}
	return &ExportResult{ExportedAt: timex.Now(), Rows: rows}, nil
}

// Import replays backup rows. Unlike MergeBatch this overwrites known
// ids unconditionally; with replace the existing set is dropped first.
func (svc *syncService) Import(ctx context.Context, rows []dto.ChangeRecord, replace bool) error {
	err := svc.store.RunBatch(ctx, func(b store.Batch) error {
		if replace {
			if err := b.Clear(); err != nil {
				return errors.StorageFailure("clear pages", err)
			}
		}
		for i := range rows {
			if err := importOne(b, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	svc.log.Info("import applied",
		zap.Int(logger.FieldBatchSize, len(rows)),
		zap.Bool("replace", replace))
	svc.publish(sse.Event{Type: "import"})
	return nil
}

func importOne(b store.Batch, r *dto.ChangeRecord) error {
	at, err := recordTime(r)
	if err != nil {
		return errors.MalformedInput("invalid updated_at", err)
	}

	existing, err := b.GetAny(r.ID.Int64())
	if err != nil && !store.IsNotFound(err) {
		return errors.StorageFailure("import lookup", err)
	}

	if existing != nil {
		if r.Title != nil {
			existing.Title = *r.Title
		}
		if r.Content != nil {
			existing.Content = *r.Content
		}
		if r.Rev != nil {
			existing.Rev = *r.Rev
		}
		if r.Deleted != nil {
			existing.Deleted = *r.Deleted
		}
		existing.UpdatedAt = at
		if err := b.Overwrite(existing); err != nil {
			return errors.StorageFailure("import overwrite", err)
		}
		return nil
	}

	if err := b.Insert(recordToPage(r, at)); err != nil {
		return errors.StorageFailure("import insert", err)
	}
	return nil
}

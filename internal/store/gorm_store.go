package store

import (
	"context"
	"errors"

	"github.com/haierkeys/holarchy-browser-service/internal/model"
	"github.com/haierkeys/holarchy-browser-service/pkg/timex"
	"github.com/haierkeys/holarchy-browser-service/pkg/writequeue"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const gormQueueName = "pages"

// GormStore is the sqlite-backed PageStore.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
	wq     *writequeue.Manager
}

// NewGormStore opens (or creates) the sqlite database at path and runs
// the schema migration.
func NewGormStore(path string, logger *zap.Logger, wq *writequeue.Manager) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := model.AutoMigrate(db); err != nil {
		return nil, err
	}
	return &GormStore{db: db, logger: logger, wq: wq}, nil
}

func (s *GormStore) Name() string { return "sqlite" }

func (s *GormStore) Create(ctx context.Context, fields CreateFields) (*model.Page, error) {
	now := timex.Now()
	page := &model.Page{
		Title:     fields.Title,
		Content:   fields.Content,
		Rev:       1,
		Deleted:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if page.Title == "" {
		page.Title = "Untitled"
	}
	err := s.wq.Execute(ctx, gormQueueName, func() error {
		return s.db.WithContext(ctx).Create(page).Error
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *GormStore) Get(ctx context.Context, id int64) (*model.Page, error) {
	var page model.Page
	err := s.db.WithContext(ctx).Where("id = ? AND deleted = 0", id).First(&page).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &page, nil
}

func (s *GormStore) getAny(ctx context.Context, tx *gorm.DB, id int64) (*model.Page, error) {
	var page model.Page
	err := tx.WithContext(ctx).Where("id = ?", id).First(&page).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &page, nil
}

func (s *GormStore) Update(ctx context.Context, id int64, patch UpdateFields) (*model.Page, error) {
	var updated *model.Page
	err := s.wq.Execute(ctx, gormQueueName, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			page, err := s.getAny(ctx, tx, id)
			if err != nil {
				return err
			}
			if patch.Title != nil {
				page.Title = *patch.Title
			}
			if patch.Content != nil {
				page.Content = *patch.Content
			}
			page.Rev++
			if patch.UpdatedAt != nil {
				page.UpdatedAt = *patch.UpdatedAt
			} else {
				page.UpdatedAt = timex.NowAfter(page.UpdatedAt)
			}
			if err := tx.Save(page).Error; err != nil {
				return err
			}
			updated = page
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *GormStore) SoftDelete(ctx context.Context, id int64) (bool, error) {
	found := false
	err := s.wq.Execute(ctx, gormQueueName, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			page, err := s.getAny(ctx, tx, id)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return nil
				}
				return err
			}
			page.Deleted = 1
			page.Rev++
			page.UpdatedAt = timex.NowAfter(page.UpdatedAt)
			if err := tx.Save(page).Error; err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (s *GormStore) List(ctx context.Context) ([]*model.Page, error) {
	var pages []*model.Page
	err := s.db.WithContext(ctx).
		Where("deleted = 0").
		Order("updated_at DESC, id DESC").
		Find(&pages).Error
	if err != nil {
		return nil, err
	}
	return pages, nil
}

func (s *GormStore) ChangesSince(ctx context.Context, since *timex.Time) ([]*model.Page, error) {
	q := s.db.WithContext(ctx).Order("updated_at ASC, id ASC")
	if since != nil {
		q = q.Where("updated_at > ?", since.Time())
	}
	var pages []*model.Page
	if err := q.Find(&pages).Error; err != nil {
		return nil, err
	}
	return pages, nil
}

func (s *GormStore) ExportAll(ctx context.Context) ([]*model.Page, error) {
	var pages []*model.Page
	err := s.db.WithContext(ctx).Order("id ASC").Find(&pages).Error
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// gormBatch applies batch operations inside a single transaction, so the
// whole batch persists or none of it does.
type gormBatch struct {
	ctx context.Context
	tx  *gorm.DB
	s   *GormStore
}

func (b *gormBatch) GetAny(id int64) (*model.Page, error) {
	return b.s.getAny(b.ctx, b.tx, id)
}

func (b *gormBatch) Insert(p *model.Page) error {
	// A positive id is honored as-is; sqlite advances its autoincrement
	// sequence past explicit ids, so later creates cannot collide.
	return b.tx.Create(p).Error
}

func (b *gormBatch) Overwrite(p *model.Page) error {
	return b.tx.Save(p).Error
}

func (b *gormBatch) Clear() error {
	if err := b.tx.Exec("DELETE FROM page").Error; err != nil {
		return err
	}
	// Reset the autoincrement counter along with the rows.
	b.tx.Exec("DELETE FROM sqlite_sequence WHERE name = ?", model.TableNamePage)
	return nil
}

func (s *GormStore) RunBatch(ctx context.Context, fn func(Batch) error) error {
	return s.wq.Execute(ctx, gormQueueName, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&gormBatch{ctx: ctx, tx: tx, s: s})
		})
	})
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

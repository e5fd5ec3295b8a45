package store

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/haierkeys/holarchy-browser-service/internal/model"
	"github.com/haierkeys/holarchy-browser-service/pkg/fileurl"
	"github.com/haierkeys/holarchy-browser-service/pkg/timex"
	"github.com/haierkeys/holarchy-browser-service/pkg/writequeue"

	"go.uber.org/zap"
)

const fileQueueName = "pages-file"

// fileDB is the on-disk shape of the flat-file backend.
type fileDB struct {
	NextID int64         `json:"nextId"`
	Pages  []*model.Page `json:"pages"`
}

// FileStore is the flat-file PageStore used when sqlite is unavailable.
// The whole page set lives in a single JSON document that is rewritten
// on every mutation.
type FileStore struct {
	path   string
	logger *zap.Logger
	wq     *writequeue.Manager

	mu sync.RWMutex
	db *fileDB
}

// NewFileStore loads the JSON document at path, creating it when absent.
// An unreadable or corrupt document is reset to an empty one.
func NewFileStore(path string, logger *zap.Logger, wq *writequeue.Manager) (*FileStore, error) {
	if err := fileurl.CreatePath(path, os.FileMode(0755)); err != nil {
		return nil, err
	}
	s := &FileStore{path: path, logger: logger, wq: wq}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err == nil {
		var db fileDB
		if jerr := json.Unmarshal(raw, &db); jerr == nil && db.NextID >= 1 {
			s.db = &db
			return nil
		}
		s.logger.Warn("page file unreadable, resetting",
			zap.String("path", s.path))
	}
	s.db = &fileDB{NextID: 1, Pages: []*model.Page{}}
	return s.save()
}

func (s *FileStore) save() error {
	raw, err := json.MarshalIndent(s.db, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) find(id int64) *model.Page {
	for _, p := range s.db.Pages {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *FileStore) Create(ctx context.Context, fields CreateFields) (*model.Page, error) {
	var created *model.Page
	err := s.wq.Execute(ctx, fileQueueName, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		now := timex.Now()
		page := &model.Page{
			ID:        s.db.NextID,
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
		s.db.NextID++
		s.db.Pages = append(s.db.Pages, page)
		if err := s.save(); err != nil {
			return err
		}
		created = page.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *FileStore) Get(ctx context.Context, id int64) (*model.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.find(id)
	if p == nil || p.Deleted != 0 {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *FileStore) Update(ctx context.Context, id int64, patch UpdateFields) (*model.Page, error) {
	var updated *model.Page
	err := s.wq.Execute(ctx, fileQueueName, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		p := s.find(id)
		if p == nil {
			return ErrNotFound
		}
		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Content != nil {
			p.Content = *patch.Content
		}
		p.Rev++
		if patch.UpdatedAt != nil {
			p.UpdatedAt = *patch.UpdatedAt
		} else {
			p.UpdatedAt = timex.NowAfter(p.UpdatedAt)
		}
		if err := s.save(); err != nil {
			return err
		}
		updated = p.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *FileStore) SoftDelete(ctx context.Context, id int64) (bool, error) {
	found := false
	err := s.wq.Execute(ctx, fileQueueName, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		p := s.find(id)
		if p == nil {
			return nil
		}
		p.Deleted = 1
		p.Rev++
		p.UpdatedAt = timex.NowAfter(p.UpdatedAt)
		found = true
		return s.save()
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (s *FileStore) List(ctx context.Context) ([]*model.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Page, 0, len(s.db.Pages))
	for _, p := range s.db.Pages {
		if p.Deleted == 0 {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].UpdatedAt.Time(), out[j].UpdatedAt.Time()
		if ti.Equal(tj) {
			return out[i].ID > out[j].ID
		}
		return ti.After(tj)
	})
	return out, nil
}

func (s *FileStore) ChangesSince(ctx context.Context, since *timex.Time) ([]*model.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Page, 0, len(s.db.Pages))
	for _, p := range s.db.Pages {
		if since == nil || p.UpdatedAt.Time().After(since.Time()) {
			out = append(out, p.Clone())
		}
	}
	sortPagesAsc(out)
	return out, nil
}

func (s *FileStore) ExportAll(ctx context.Context) ([]*model.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Page, 0, len(s.db.Pages))
	for _, p := range s.db.Pages {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func sortPagesAsc(pages []*model.Page) {
	sort.Slice(pages, func(i, j int) bool {
		ti, tj := pages[i].UpdatedAt.Time(), pages[j].UpdatedAt.Time()
		if ti.Equal(tj) {
			return pages[i].ID < pages[j].ID
		}
		return ti.Before(tj)
	})
}

// fileBatch stages mutations on a deep copy, which replaces the live
// document only when the batch function returns nil.
type fileBatch struct {
	staged *fileDB
}

func (b *fileBatch) find(id int64) *model.Page {
	for _, p := range b.staged.Pages {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (b *fileBatch) GetAny(id int64) (*model.Page, error) {
	p := b.find(id)
	if p == nil {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (b *fileBatch) Insert(p *model.Page) error {
	stored := p.Clone()
	if stored.ID <= 0 {
		stored.ID = b.staged.NextID
	}
	if stored.ID >= b.staged.NextID {
		b.staged.NextID = stored.ID + 1
	}
	b.staged.Pages = append(b.staged.Pages, stored)
	p.ID = stored.ID
	return nil
}

func (b *fileBatch) Overwrite(p *model.Page) error {
	existing := b.find(p.ID)
	if existing == nil {
		return ErrNotFound
	}
	*existing = *p.Clone()
	return nil
}

func (b *fileBatch) Clear() error {
	b.staged.Pages = []*model.Page{}
	b.staged.NextID = 1
	return nil
}

func (s *FileStore) RunBatch(ctx context.Context, fn func(Batch) error) error {
	return s.wq.Execute(ctx, fileQueueName, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		staged := &fileDB{NextID: s.db.NextID, Pages: make([]*model.Page, 0, len(s.db.Pages))}
		for _, p := range s.db.Pages {
			staged.Pages = append(staged.Pages, p.Clone())
		}
		if err := fn(&fileBatch{staged: staged}); err != nil {
			return err
		}
		prev := s.db
		s.db = staged
		if err := s.save(); err != nil {
			s.db = prev
			return err
		}
		return nil
	})
}

func (s *FileStore) Close() error { return nil }

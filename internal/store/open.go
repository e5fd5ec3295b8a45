package store

import (
	"os"
	"path/filepath"

	"github.com/haierkeys/holarchy-browser-service/pkg/fileurl"
	"github.com/haierkeys/holarchy-browser-service/pkg/writequeue"

	"go.uber.org/zap"
)

// Config selects and locates the page backend.
type Config struct {
	// Type is "sqlite", "file" or "auto". Auto tries sqlite first and
	// falls back to the flat file when the database cannot be opened.
	Type string `yaml:"type" default:"auto"`
	Dir  string `yaml:"dir" default:"storage/data"`
}

func (c Config) sqlitePath() string { return filepath.Join(c.Dir, "pages.db") }
func (c Config) filePath() string   { return filepath.Join(c.Dir, "pages.json") }

// Open builds the PageStore described by cfg.
func Open(cfg Config, logger *zap.Logger, wq *writequeue.Manager) (PageStore, error) {
	if err := fileurl.CreatePath(cfg.sqlitePath(), os.FileMode(0755)); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case "file":
		return NewFileStore(cfg.filePath(), logger, wq)
	case "sqlite":
		return NewGormStore(cfg.sqlitePath(), logger, wq)
	default:
		s, err := NewGormStore(cfg.sqlitePath(), logger, wq)
		if err != nil {
			logger.Warn("sqlite unavailable, using flat file backend",
				zap.Error(err))
			return NewFileStore(cfg.filePath(), logger, wq)
		}
		return s, nil
	}
}

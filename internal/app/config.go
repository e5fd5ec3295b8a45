package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/haierkeys/holarchy-browser-service/internal/store"
	"github.com/haierkeys/holarchy-browser-service/pkg/logger"
	"github.com/haierkeys/holarchy-browser-service/pkg/workerpool"
	"github.com/haierkeys/holarchy-browser-service/pkg/writequeue"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AppConfig is the whole service configuration tree.
type AppConfig struct {
	File     string         `yaml:"-"`
	Server   ServerConfig   `yaml:"server"`
	Log      logger.Config  `yaml:"log"`
	Database store.Config   `yaml:"database"`
	App      AppSettings    `yaml:"app"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

type ServerConfig struct {
	// RunMode is gin's mode, debug or release.
	RunMode string `yaml:"run-mode" default:"release"`

	HttpPort string `yaml:"http-port" default:":9000"`

	ReadTimeout int `yaml:"read-timeout" default:"60"`

	// WriteTimeout 0 keeps the event stream alive; set it only when the
	// deployment fronts the service with a buffering proxy.
	WriteTimeout int `yaml:"write-timeout" default:"0"`
}

type AppSettings struct {
	// DefaultContextTimeout bounds API request handling, in seconds.
	DefaultContextTimeout int `yaml:"default-context-timeout" default:"30"`

	WorkerPoolMaxWorkers int `yaml:"worker-pool-max-workers" default:"8"`

	WorkerPoolQueueSize int `yaml:"worker-pool-queue-size" default:"256"`

	WriteQueueCapacity int `yaml:"write-queue-capacity" default:"128"`

	WriteQueueTimeout string `yaml:"write-queue-timeout" default:"30s"`
}

// SnapshotConfig drives the periodic export-to-disk task.
type SnapshotConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`

	// Schedule is a cron expression.
	Schedule string `yaml:"schedule" default:"0 3 * * *"`

	Dir string `yaml:"dir" default:"storage/snapshots"`

	// Keep is how many snapshot files to retain.
	Keep int `yaml:"keep" default:"7"`
}

// LoadConfig reads f, layering file values over struct defaults.
func LoadConfig(f string) (*AppConfig, string, error) {
	realpath, err := filepath.Abs(f)
	if err != nil {
		return nil, "", err
	}
	realpath = filepath.Clean(realpath)

	c := new(AppConfig)
	c.File = realpath

	if err := defaults.Set(c); err != nil {
		return nil, realpath, errors.Wrap(err, "set default config failed")
	}

	file, err := os.ReadFile(realpath)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "read config file failed")
	}

	if err := yaml.Unmarshal(file, c); err != nil {
		return nil, realpath, errors.Wrap(err, "parse config file failed")
	}

	// Fill fields present in the YAML but left empty.
	if err := defaults.Set(c); err != nil {
		return nil, realpath, errors.Wrap(err, "re-set default config failed")
	}

	return c, realpath, nil
}

// Save writes the configuration back to its file.
func (c *AppConfig) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config failed")
	}
	if err := os.WriteFile(c.File, data, 0644); err != nil {
		return errors.Wrap(err, "write config file failed")
	}
	return nil
}

func (c *AppConfig) GetWorkerPoolConfig() workerpool.Config {
	cfg := workerpool.DefaultConfig()
	if c.App.WorkerPoolMaxWorkers > 0 {
		cfg.MaxWorkers = c.App.WorkerPoolMaxWorkers
	}
	if c.App.WorkerPoolQueueSize > 0 {
		cfg.QueueSize = c.App.WorkerPoolQueueSize
	}
	return cfg
}

func (c *AppConfig) GetWriteQueueConfig() writequeue.Config {
	cfg := writequeue.DefaultConfig()
	if c.App.WriteQueueCapacity > 0 {
		cfg.QueueCapacity = c.App.WriteQueueCapacity
	}
	if c.App.WriteQueueTimeout != "" {
		if timeout, err := time.ParseDuration(c.App.WriteQueueTimeout); err == nil {
			cfg.WriteTimeout = timeout
		}
	}
	return cfg
}

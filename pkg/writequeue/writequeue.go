// Package writequeue serializes mutations against a named store.
//
// The page store assumes a single-writer discipline: each mutating call
// runs to completion before the next one starts. Rather than fine-grained
// locks, every write is funnelled through a per-store FIFO queue drained by
// one worker goroutine, which also keeps sqlite from reporting
// "database is locked" under concurrent requests.
package writequeue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull returned when the store's write queue is full
	ErrQueueFull = errors.New("write queue is full")
	// ErrQueueClosed returned when the manager has been shut down
	ErrQueueClosed = errors.New("write queue is closed")
	// ErrWriteTimeout returned when a write did not complete in time
	ErrWriteTimeout = errors.New("write operation timeout")
)

// Config write queue configuration
type Config struct {
	// QueueCapacity per-store queue capacity, default 128
	QueueCapacity int
	// WriteTimeout single write timeout, default 30 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 128,
		WriteTimeout:  30 * time.Second,
	}
}

type writeOp struct {
	ctx    context.Context
	fn     func() error
	result chan error
}

type storeQueue struct {
	name   string
	ch     chan writeOp
	closed atomic.Bool
	wg     sync.WaitGroup
}

// Manager owns the write queues for all stores.
type Manager struct {
	config Config
	logger *zap.Logger

	queues sync.Map // map[string]*storeQueue

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// New creates a write queue manager. A nil cfg uses defaults; a nil logger
// is replaced with a nop logger.
func New(cfg *Config, logger *zap.Logger) *Manager {
	if cfg == nil {
		defaultCfg := DefaultConfig()
		cfg = &defaultCfg
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 128
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		config: *cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	m.logger.Info("write queue manager started",
		zap.Int("queueCapacity", cfg.QueueCapacity),
		zap.Duration("writeTimeout", cfg.WriteTimeout))

	return m
}

// Execute runs fn on the named store's queue and waits for its result.
// Writes to the same store are processed strictly in FIFO order.
func (m *Manager) Execute(ctx context.Context, store string, fn func() error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrQueueClosed
	}
	m.mu.RUnlock()

	queue := m.getOrCreateQueue(store)
	if queue == nil {
		return ErrQueueClosed
	}

	result := make(chan error, 1)
	select {
	case queue.ch <- writeOp{ctx: ctx, fn: fn, result: result}:
	default:
		return ErrQueueFull
	}

	timeout := m.config.WriteTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return ErrWriteTimeout
	case <-m.ctx.Done():
		return ErrQueueClosed
	}
}

func (m *Manager) getOrCreateQueue(store string) *storeQueue {
	if v, ok := m.queues.Load(store); ok {
		return v.(*storeQueue)
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil
	}
	m.mu.RUnlock()

	queue := &storeQueue{
		name: store,
		ch:   make(chan writeOp, m.config.QueueCapacity),
	}

	actual, loaded := m.queues.LoadOrStore(store, queue)
	if loaded {
		return actual.(*storeQueue)
	}

	queue.wg.Add(1)
	go m.worker(queue)

	m.logger.Debug("created write queue",
		zap.String("store", store),
		zap.Int("capacity", m.config.QueueCapacity))

	return queue
}

func (m *Manager) worker(queue *storeQueue) {
	defer queue.wg.Done()
	defer queue.closed.Store(true)

	for {
		select {
		case <-m.ctx.Done():
			m.drain(queue)
			return
		case op, ok := <-queue.ch:
			if !ok {
				return
			}
			m.executeOp(queue, op)
		}
	}
}

func (m *Manager) executeOp(queue *storeQueue, op writeOp) {
	select {
	case <-op.ctx.Done():
		op.result <- op.ctx.Err()
		return
	default:
	}

	err := op.fn()

	select {
	case op.result <- err:
	default:
	}
}

// drain fails all queued operations with ErrQueueClosed.
func (m *Manager) drain(queue *storeQueue) {
	for {
		select {
		case op, ok := <-queue.ch:
			if !ok {
				return
			}
			select {
			case op.result <- ErrQueueClosed:
			default:
			}
		default:
			return
		}
	}
}

// Shutdown stops accepting writes and waits for queue workers, bounded by
// ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.logger.Info("write queue manager shutting down")
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.queues.Range(func(_, v any) bool {
			q := v.(*storeQueue)
			q.wg.Wait()
			return true
		})
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		m.logger.Warn("write queue manager shutdown timeout")
		return ctx.Err()
	}
}

// Package workerpool provides a bounded worker pool for background work
// such as post-commit broadcast dispatch. It caps concurrent goroutines so
// a burst of mutations cannot leak unbounded fan-out goroutines.
package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	// ErrPoolFull returned when the task queue is full
	ErrPoolFull = errors.New("worker pool queue is full")
	// ErrPoolClosed returned when the pool has been shut down
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrTaskCancelled returned when the task context expired before it ran
	ErrTaskCancelled = errors.New("task was cancelled")
)

// Config worker pool configuration
type Config struct {
	// MaxWorkers maximum concurrent workers, default 8
	MaxWorkers int
	// QueueSize pending task queue size, default 256
	QueueSize int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxWorkers: 8,
		QueueSize:  256,
	}
}

type task struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Pool manages a fixed set of worker goroutines draining a shared queue.
type Pool struct {
	config Config
	logger *zap.Logger

	taskCh chan task
	wg     sync.WaitGroup

	active atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// New creates a worker pool. A nil cfg uses defaults; a nil logger is
// replaced with a nop logger.
func New(cfg *Config, logger *zap.Logger) *Pool {
	if cfg == nil {
		defaultCfg := DefaultConfig()
		cfg = &defaultCfg
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 8
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		config: *cfg,
		logger: logger,
		taskCh: make(chan task, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < cfg.MaxWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	p.logger.Info("worker pool started",
		zap.Int("maxWorkers", cfg.MaxWorkers),
		zap.Int("queueSize", cfg.QueueSize))

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.taskCh:
			if !ok {
				return
			}
			p.run(t)
		}
	}
}

func (p *Pool) run(t task) {
	p.active.Add(1)
	defer p.active.Add(-1)

	var err error
	select {
	case <-t.ctx.Done():
		err = ErrTaskCancelled
	default:
		err = t.fn(t.ctx)
	}

	if t.done != nil {
		select {
		case t.done <- err:
		default:
		}
	}
}

// Submit enqueues a task and waits for its result.
func (p *Pool) Submit(ctx context.Context, fn func(context.Context) error) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.mu.RUnlock()

	done := make(chan error, 1)
	select {
	case p.taskCh <- task{ctx: ctx, fn: fn, done: done}:
	default:
		return ErrPoolFull
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// SubmitAsync enqueues a task without waiting for its result.
func (p *Pool) SubmitAsync(ctx context.Context, fn func(context.Context) error) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.mu.RUnlock()

	select {
	case p.taskCh <- task{ctx: ctx, fn: fn}:
		return nil
	default:
		return ErrPoolFull
	}
}

// ActiveCount returns the number of tasks currently executing.
func (p *Pool) ActiveCount() int64 {
	return p.active.Load()
}

// Shutdown stops accepting tasks and waits for in-flight work, bounded by
// ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.logger.Info("worker pool shutting down",
		zap.Int64("activeCount", p.active.Load()),
		zap.Int("queuedCount", len(p.taskCh)))

	close(p.taskCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("worker pool shutdown timeout, forcing cancellation")
		return ctx.Err()
	}
}

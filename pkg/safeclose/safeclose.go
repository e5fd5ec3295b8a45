// Package safeclose coordinates the shutdown of multiple long-running
// goroutines: each participant attaches a handler that blocks until the
// close signal fires, and WaitClosed blocks until every handler is done.
package safeclose

import (
	"sync"
)

type SafeClose struct {
	mu     sync.Mutex
	closed bool
	err    error

	closeCh chan struct{}
	wg      sync.WaitGroup
}

func New() *SafeClose {
	return &SafeClose{
		closeCh: make(chan struct{}),
	}
}

// Attach registers a shutdown participant. The handler receives a done
// callback it must call exactly once when finished, and a channel that is
// closed when shutdown begins. The handler runs in its own goroutine.
func (s *SafeClose) Attach(fn func(done func(), closeSignal <-chan struct{})) {
	s.wg.Add(1)
	var once sync.Once
	done := func() {
		once.Do(s.wg.Done)
	}
	go fn(done, s.closeCh)
}

// SendCloseSignal starts shutdown. The first caller's error is retained;
// later calls are no-ops.
func (s *SafeClose) SendCloseSignal(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.closeCh)
}

// WaitClosed blocks until every attached handler has called done, then
// returns the error passed to the first SendCloseSignal, if any.
func (s *SafeClose) WaitClosed() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// CloseSignal exposes the close channel for select loops that are not
// attached participants.
func (s *SafeClose) CloseSignal() <-chan struct{} {
	return s.closeCh
}

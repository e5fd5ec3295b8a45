// Package sse fans mutation events out to connected event-stream clients.
package sse

import (
	"encoding/json"
	"sync"

	"github.com/haierkeys/holarchy-browser-service/pkg/logger"
	"github.com/haierkeys/holarchy-browser-service/pkg/timex"

	"go.uber.org/zap"
)

// Event is the payload pushed to subscribers after a mutation.
type Event struct {
	Type       string     `json:"type"`
	Action     string     `json:"action,omitempty"`
	Row        any        `json:"row,omitempty"`
	ID         int64      `json:"id,omitempty"`
	ServerTime timex.Time `json:"serverTime"`
}

const subscriberBuffer = 16

// Broadcaster keeps the subscriber registry. Delivery is best effort:
// a subscriber that cannot keep up has events dropped, never blocks
// the publisher.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int64]chan []byte
	nextID int64
	log    *zap.Logger
}

func NewBroadcaster(log *zap.Logger) *Broadcaster {
	return &Broadcaster{
		subs: make(map[int64]chan []byte),
		log:  log,
	}
}

// Subscribe registers a new client and returns its id and event channel.
func (b *Broadcaster) Subscribe() (int64, <-chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	ch := make(chan []byte, subscriberBuffer)
	b.subs[id] = ch
	b.log.Debug("sse subscriber added",
		zap.Int64("subscriber", id),
		zap.Int(logger.FieldSubscribers, len(b.subs)))
	return id, ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broadcaster) Unsubscribe(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Broadcast marshals ev once and offers it to every subscriber.
func (b *Broadcaster) Broadcast(ev Event) {
	if ev.ServerTime.Time().IsZero() {
		ev.ServerTime = timex.Now()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		b.log.Error("sse event marshal failed", zap.Error(err))
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- raw:
		default:
			b.log.Warn("sse subscriber lagging, event dropped",
				zap.Int64("subscriber", id))
		}
	}
}

// SubscriberCount reports the number of connected clients.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close drops every subscriber.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

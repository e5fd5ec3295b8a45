package sse

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBroadcaster_DeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	_, ch1 := b.Subscribe()
	_, ch2 := b.Subscribe()
	assert.Equal(t, 2, b.SubscriberCount())

	b.Broadcast(Event{Type: "page", Action: "created"})

	for _, ch := range []<-chan []byte{ch1, ch2} {
		raw := <-ch
		var got Event
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "page", got.Type)
		assert.Equal(t, "created", got.Action)
		assert.False(t, got.ServerTime.Time().IsZero())
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	id, ch := b.Subscribe()
	b.Unsubscribe(id)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	_, ch := b.Subscribe()

	// Overflow the buffer; publishes must not block.
	for i := 0; i < subscriberBuffer*2; i++ {
		b.Broadcast(Event{Type: "sync"})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestBroadcaster_CloseDropsSubscribers(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	_, ch := b.Subscribe()
	b.Close()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.SubscriberCount())
}

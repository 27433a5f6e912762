// Package events provides a publish-subscribe bus for status snapshots.
package events

import (
	"sync"

	"github.com/micro-nova/clockgen-go/internal/models"
)

const subBufferSize = 8

// Bus is a non-blocking publish-subscribe event bus.
// A subscriber that falls behind loses its oldest snapshots, never the
// newest, and never blocks publishers.
type Bus struct {
	mu   sync.Mutex
	subs map[string]chan models.Status
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]chan models.Status),
	}
}

// Subscribe creates a new subscription with the given ID.
// Call Unsubscribe when done to clean up.
func (b *Bus) Subscribe(id string) <-chan models.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan models.Status, subBufferSize)
	b.subs[id] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish sends a snapshot to all subscribers.
func (b *Bus) Publish(st models.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- st:
			continue
		default:
		}
		// full: make room by dropping the oldest
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

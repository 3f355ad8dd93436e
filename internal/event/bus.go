package event

import (
	"log/slog"
	"sync"
)

// subscriberBuffer absorbs bursts such as a refresh storm across tabs.
const subscriberBuffer = 100

type subscriber struct {
	name string
	ch   chan Event
}

// InMemoryBus fans session events out to in-process consumers. Publishing
// never blocks: a subscriber whose buffer is full misses the event.
type InMemoryBus struct {
	mu          sync.RWMutex
	nextID      uint64
	subscribers map[uint64]subscriber
}

func NewBus() *InMemoryBus {
	return &InMemoryBus{subscribers: make(map[uint64]subscriber)}
}

func (b *InMemoryBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.ch <- e:
		default:
			slog.Warn("event dropped for slow subscriber", "subscriber", sub.name, "type", e.Type, "session_id", e.SessionID)
		}
	}
}

// Subscribe registers a consumer under name, used only in logs. The returned
// func unsubscribes and closes the channel; calling it again is a no-op.
func (b *InMemoryBus) Subscribe(name string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan Event, subscriberBuffer)
	b.subscribers[id] = subscriber{name: name, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, id)
			close(ch)
		})
	}
}

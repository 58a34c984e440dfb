package events

import (
	"context"
	"sync"

	"github.com/citasalud/bookingcore/internal/domain/entities"
	"github.com/citasalud/bookingcore/internal/domain/providers"
)

// MemoryEventBus implements SessionEventBus in-process. Used when Redis
// is not configured, and in tests; events reach only local subscribers.
type MemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[chan *entities.SessionEvent]struct{}
	closed      bool
}

// NewMemoryEventBus creates a new in-process session event bus
func NewMemoryEventBus() providers.SessionEventBus {
	return &MemoryEventBus{
		subscribers: make(map[chan *entities.SessionEvent]struct{}),
	}
}

// Publish publishes a session event to all subscribers
func (b *MemoryEventBus) Publish(ctx context.Context, event *entities.SessionEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subscriber := range b.subscribers {
		select {
		case subscriber <- event:
		default:
			// Subscriber not draining, skip event
		}
	}
	return nil
}

// Subscribe subscribes to session events
func (b *MemoryEventBus) Subscribe(ctx context.Context) (<-chan *entities.SessionEvent, error) {
	eventChan := make(chan *entities.SessionEvent, 16)

	b.mu.Lock()
	b.subscribers[eventChan] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.removeSubscriber(eventChan)
	}()

	return eventChan, nil
}

func (b *MemoryEventBus) removeSubscriber(eventChan chan *entities.SessionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[eventChan]; !ok {
		return
	}
	delete(b.subscribers, eventChan)
	close(eventChan)
}

// Close closes the event bus and all subscriptions
func (b *MemoryEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for subscriber := range b.subscribers {
		close(subscriber)
	}
	b.subscribers = make(map[chan *entities.SessionEvent]struct{})
	return nil
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/citasalud/bookingcore/internal/domain/entities"
	"github.com/citasalud/bookingcore/internal/domain/providers"
	redisclient "github.com/citasalud/bookingcore/internal/infrastructure/clients/redis"
	"github.com/citasalud/bookingcore/internal/infrastructure/observability"
)

// RedisEventBus implements SessionEventBus using Redis Pub/Sub. Sign-in,
// sign-out and token refresh on one process propagate to every other
// process sharing the same Redis, which is how cross-instance sign-out
// reaches local session state.
type RedisEventBus struct {
	client      *redisclient.Client
	pubsub      *redis.PubSub
	subscribers map[chan *entities.SessionEvent]struct{}
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based session event bus
func NewRedisEventBus(client *redisclient.Client) providers.SessionEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:      client,
		subscribers: make(map[chan *entities.SessionEvent]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Publish publishes a session event to all subscribers
func (b *RedisEventBus) Publish(ctx context.Context, event *entities.SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, providers.SessionChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish session event: %w", err)
	}
	return nil
}

// Subscribe subscribes to session events; the returned channel is closed
// when ctx is cancelled or the bus shuts down
func (b *RedisEventBus) Subscribe(ctx context.Context) (<-chan *entities.SessionEvent, error) {
	b.mu.Lock()
	if b.pubsub == nil {
		b.pubsub = b.client.Client().Subscribe(b.ctx, providers.SessionChannel)
		go b.receiveMessages(b.pubsub)
	}

	eventChan := make(chan *entities.SessionEvent, 16)
	b.subscribers[eventChan] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.removeSubscriber(eventChan)
	}()

	return eventChan, nil
}

// receiveMessages fans incoming messages out to local subscribers
func (b *RedisEventBus) receiveMessages(pubsub *redis.PubSub) {
	logger := observability.GetLogger()
	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event entities.SessionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn().Err(err).Msg("discarding malformed session event")
				continue
			}

			b.mu.RLock()
			for subscriber := range b.subscribers {
				select {
				case subscriber <- &event:
				default:
					// Subscriber not draining, skip event
					logger.Warn().Str("event", string(event.Type)).Msg("subscriber channel full, dropping session event")
				}
			}
			b.mu.RUnlock()
		}
	}
}

func (b *RedisEventBus) removeSubscriber(eventChan chan *entities.SessionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[eventChan]; !ok {
		return
	}
	delete(b.subscribers, eventChan)
	close(eventChan)
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for subscriber := range b.subscribers {
		close(subscriber)
	}
	b.subscribers = make(map[chan *entities.SessionEvent]struct{})

	if b.pubsub != nil {
		if err := b.pubsub.Close(); err != nil {
			return fmt.Errorf("failed to close session subscription: %w", err)
		}
		b.pubsub = nil
	}
	return nil
}

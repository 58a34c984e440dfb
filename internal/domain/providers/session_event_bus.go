package providers

import (
	"context"

	"github.com/citasalud/bookingcore/internal/domain/entities"
)

// SessionChannel is the channel all auth-state-change events flow through
const SessionChannel = "session:events"

// SessionEventBus defines the interface for publishing and subscribing to
// auth-state-change notifications. This is the mechanism by which token
// refresh or sign-out on one instance propagates into the local state of
// the others.
type SessionEventBus interface {
	// Publish publishes a session event to all subscribers
	Publish(ctx context.Context, event *entities.SessionEvent) error

	// Subscribe subscribes to session events; the returned channel is
	// closed when ctx is cancelled or the bus shuts down
	Subscribe(ctx context.Context) (<-chan *entities.SessionEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

package messaging

import "context"

// Broker is the minimal pub/sub surface the platform needs for
// propagating domain events to downstream consumers.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

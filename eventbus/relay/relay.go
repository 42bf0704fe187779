// Package relay forwards ExtractionEvents off-process: to a Redis pub/sub
// channel for other services to subscribe to, or to an HTTP webhook for
// simple downstream notification. The event bus itself (eventbus.Bus)
// remains the single in-process broadcast; a Relay is an optional
// subscriber that republishes externally.
package relay

import "context"

// Relay publishes one event to a downstream system. Implementations must
// be safe for single-use per event and must respect context cancellation.
type Relay interface {
	Publish(ctx context.Context, eventJSON []byte) error
	Close() error
}

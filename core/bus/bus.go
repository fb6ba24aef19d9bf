// Package bus defines the message bus port used to fan domain events out to
// connected gateway sessions. The broker client may be shared process-wide;
// every Subscription is exclusively owned by one session and must be
// released exactly once.
package bus

import (
	"context"
	"errors"

	"github.com/fabienmoyon/socialInbox/core/event"
)

var (
	ErrClosed = errors.New("bus is closed")
)

// Publisher is the write-side view of the bus.
type Publisher interface {
	// Publish routes env by env.Key. Envelopes sharing a key are delivered
	// in publish order to any one subscriber.
	Publish(ctx context.Context, env event.Envelope) error
}

// Subscription is one client's ordered feed of every published envelope.
type Subscription interface {
	Chan() <-chan event.Envelope
	// Cancel releases the subscription. Safe to call more than once.
	Cancel()
}

// Bus is the full pub/sub port.
type Bus interface {
	Publisher
	// Subscribe creates a consumer keyed by clientID. The subscription is
	// cancelled when ctx is done or Cancel is called, whichever first.
	Subscribe(ctx context.Context, clientID string) (Subscription, error)
}

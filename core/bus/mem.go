package bus

import (
	"context"
	"log/slog"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/fabienmoyon/socialInbox/core/event"
)

const memSubBuffer = 64

// InMemoryBus is a simple ordered fan-out bus for tests and dev mode.
// Publish order is preserved per subscriber (a total order, which trivially
// satisfies the per-key ordering contract).
type InMemoryBus struct {
	mu     sync.Mutex
	log    *slog.Logger
	subs   map[string]*memSubscription
	closed bool
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		log:  slog.Default().With(slog.String("bus", "memory")),
		subs: map[string]*memSubscription{},
	}
}

func (b *InMemoryBus) Publish(_ context.Context, env event.Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	for id, sub := range b.subs {
		select {
		case sub.ch <- env:
		default:
			// a send must never block while holding the bus lock
			b.log.Warn("subscriber buffer full, dropping",
				slog.String("subscription", id),
				slog.String("event", env.Event),
			)
		}
	}
	b.log.Debug("published",
		slog.String("event", env.Event),
		slog.String("key", env.Key),
		slog.Int("subscriptions", len(b.subs)),
	)
	return nil
}

func (b *InMemoryBus) Subscribe(ctx context.Context, clientID string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	subID := clientID + "-" + gonanoid.Must(6)
	sub := &memSubscription{
		ch: make(chan event.Envelope, memSubBuffer),
	}
	sub.cancel = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, subID)
	}
	b.subs[subID] = sub

	context.AfterFunc(ctx, func() {
		sub.Cancel()
	})

	return sub, nil
}

// Close cancels all live subscriptions and rejects further use.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = map[string]*memSubscription{}
}

// Subscriptions reports the number of live subscriptions. Used by tests to
// assert teardown.
func (b *InMemoryBus) Subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

type memSubscription struct {
	ch     chan event.Envelope
	cancel func()
	once   sync.Once
}

func (s *memSubscription) Chan() <-chan event.Envelope { return s.ch }
func (s *memSubscription) Cancel()                     { s.once.Do(s.cancel) }

var _ Bus = (*InMemoryBus)(nil)

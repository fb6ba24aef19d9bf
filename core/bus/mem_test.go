package bus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fabienmoyon/socialInbox/core/bus"
	"github.com/fabienmoyon/socialInbox/core/event"
)

func publish(t *testing.T, b *bus.InMemoryBus, eventType, key string) {
	t.Helper()
	env, err := event.New(key, eventType, event.Actor{ID: key}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Publish(t.Context(), env))
}

func TestInMemoryBus_FanOut(t *testing.T) {
	b := bus.NewInMemoryBus()

	s1, err := b.Subscribe(t.Context(), "client-aaaaaaaaaaaa")
	require.NoError(t, err)
	s2, err := b.Subscribe(t.Context(), "client-bbbbbbbbbbbb")
	require.NoError(t, err)

	publish(t, b, event.LabelCreated, "u1")

	for _, s := range []bus.Subscription{s1, s2} {
		select {
		case env := <-s.Chan():
			require.Equal(t, event.LabelCreated, env.Event)
		case <-time.After(1 * time.Second):
			t.Fatal("timeout")
		}
	}
}

func TestInMemoryBus_OrderPerKey(t *testing.T) {
	b := bus.NewInMemoryBus()

	sub, err := b.Subscribe(t.Context(), "client-aaaaaaaaaaaa")
	require.NoError(t, err)

	events := []string{event.EmailShared, event.EmailLabelAdded, event.EmailLabelRemoved}
	for _, e := range events {
		publish(t, b, e, "u1")
	}

	for _, want := range events {
		select {
		case env := <-sub.Chan():
			require.Equal(t, want, env.Event)
			require.Equal(t, "u1", env.Key)
		case <-time.After(1 * time.Second):
			t.Fatal("timeout")
		}
	}
}

func TestInMemoryBus_CancelIdempotent(t *testing.T) {
	b := bus.NewInMemoryBus()

	sub, err := b.Subscribe(t.Context(), "client-aaaaaaaaaaaa")
	require.NoError(t, err)
	require.Equal(t, 1, b.Subscriptions())

	sub.Cancel()
	sub.Cancel()
	require.Equal(t, 0, b.Subscriptions())

	publish(t, b, event.LabelCreated, "u1")
	select {
	case env := <-sub.Chan():
		t.Fatalf("received %s after cancel", env.Event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInMemoryBus_ContextCancelReleases(t *testing.T) {
	b := bus.NewInMemoryBus()

	ctx, cancel := context.WithCancel(t.Context())
	_, err := b.Subscribe(ctx, "client-aaaaaaaaaaaa")
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool {
		return b.Subscriptions() == 0
	}, 1*time.Second, 10*time.Millisecond)
}

func TestInMemoryBus_RejectsInvalidEnvelope(t *testing.T) {
	b := bus.NewInMemoryBus()
	err := b.Publish(t.Context(), event.Envelope{Key: "k"})
	require.Error(t, err)
}

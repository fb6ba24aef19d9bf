package gateway_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fabienmoyon/socialInbox/core/bus"
	"github.com/fabienmoyon/socialInbox/core/dispatch"
	"github.com/fabienmoyon/socialInbox/core/event"
	"github.com/fabienmoyon/socialInbox/core/gateway"
)

const testClientID = "abcdef012345"

type frame struct {
	Event string
	Data  any
}

type frameRecorder struct {
	frames chan frame
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{frames: make(chan frame, 64)}
}

func (r *frameRecorder) WriteFrame(eventType string, data any) error {
	r.frames <- frame{Event: eventType, Data: data}
	return nil
}

func (r *frameRecorder) next(t *testing.T) frame {
	t.Helper()
	select {
	case f := <-r.frames:
		return f
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for frame")
		return frame{}
	}
}

func (r *frameRecorder) expectNone(t *testing.T, ignore ...string) {
	t.Helper()
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case f := <-r.frames:
			ignored := false
			for _, ev := range ignore {
				if f.Event == ev {
					ignored = true
				}
			}
			if !ignored {
				t.Fatalf("unexpected frame %s", f.Event)
			}
		case <-deadline:
			return
		}
	}
}

type stubOracle struct {
	allowed map[string]map[string]any
	err     error
}

func (o *stubOracle) ResolveIfAuthorized(_ context.Context, viewer event.Actor, resourceID string) (map[string]any, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.allowed[viewer.ID+"/"+resourceID], nil
}

type sessionFixture struct {
	bus    *bus.InMemoryBus
	rec    *frameRecorder
	cancel context.CancelFunc
	done   chan error
}

func startSession(t *testing.T, viewer event.Actor, oracle dispatch.PermissionOracle) *sessionFixture {
	t.Helper()

	b := bus.NewInMemoryBus()
	rec := newFrameRecorder()
	s, err := gateway.NewSession(gateway.SessionConfig{
		Viewer:    viewer,
		ClientID:  testClientID,
		Bus:       b,
		Registry:  dispatch.Default(oracle),
		Writer:    rec,
		Heartbeat: 1 * time.Hour, // keep pings out of frame assertions
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return b.Subscriptions() == 1 }, 1*time.Second, 5*time.Millisecond)

	t.Cleanup(cancel)
	return &sessionFixture{bus: b, rec: rec, cancel: cancel, done: done}
}

func (f *sessionFixture) publish(t *testing.T, eventType string, sender event.Actor, payload map[string]any) {
	t.Helper()
	env, err := event.New(sender.ID, eventType, sender, payload)
	require.NoError(t, err)
	require.NoError(t, f.bus.Publish(t.Context(), env))
}

func TestNewSession_Rejections(t *testing.T) {
	b := bus.NewInMemoryBus()
	cfg := gateway.SessionConfig{
		ClientID: testClientID,
		Bus:      b,
		Registry: dispatch.Default(&stubOracle{}),
		Writer:   newFrameRecorder(),
	}

	_, err := gateway.NewSession(cfg)
	require.ErrorIs(t, err, gateway.ErrNoViewer)

	cfg.Viewer = event.Actor{ID: "u1"}
	cfg.ClientID = "short"
	_, err = gateway.NewSession(cfg)
	require.ErrorIs(t, err, gateway.ErrClientIDShort)

	// rejection allocates nothing
	require.Equal(t, 0, b.Subscriptions())
}

func TestSession_Broadcast(t *testing.T) {
	f := startSession(t, event.Actor{ID: "U1"}, &stubOracle{})

	payload := map[string]any{"name": "urgent", "colorId": 2}
	f.publish(t, event.LabelCreated, event.Actor{ID: "someone-else"}, payload)

	got := f.rec.next(t)
	require.Equal(t, event.LabelCreated, got.Event)
	require.Equal(t, payload, got.Data)
}

func TestSession_ResourceScopedDenied(t *testing.T) {
	f := startSession(t, event.Actor{ID: "U2"}, &stubOracle{}) // U2 not allowed on anything

	f.publish(t, event.EmailShared, event.Actor{ID: "U1"}, map[string]any{"emailId": "E1"})
	f.rec.expectNone(t)
}

func TestSession_ResourceScopedAllowed(t *testing.T) {
	oracle := &stubOracle{allowed: map[string]map[string]any{
		"U1/E1": {"_id": "E1"},
	}}
	f := startSession(t, event.Actor{ID: "U1"}, oracle)

	f.publish(t, event.EmailShared, event.Actor{ID: "U9"}, map[string]any{"emailId": "E1"})
	got := f.rec.next(t)
	require.Equal(t, event.EmailShared, got.Event)
}

func TestSession_SenderEcho(t *testing.T) {
	f := startSession(t, event.Actor{ID: "U1"}, &stubOracle{})

	f.publish(t, event.EmailUserStateSeenUpdated, event.Actor{ID: "U2"}, map[string]any{"state": true})
	f.rec.expectNone(t)

	f.publish(t, event.EmailUserStateSeenUpdated, event.Actor{ID: "U1"}, map[string]any{"state": true})
	got := f.rec.next(t)
	require.Equal(t, event.EmailUserStateSeenUpdated, got.Event)
}

func TestSession_TargetedUser(t *testing.T) {
	notification := map[string]any{"user": map[string]any{"_id": "U3"}, "text": "hi"}

	f4 := startSession(t, event.Actor{ID: "U4"}, &stubOracle{})
	f4.publish(t, event.UserNotificationCreated, event.Actor{ID: "system"}, notification)
	f4.rec.expectNone(t)

	f3 := startSession(t, event.Actor{ID: "U3"}, &stubOracle{})
	f3.publish(t, event.UserNotificationCreated, event.Actor{ID: "system"}, notification)
	got := f3.rec.next(t)
	require.Equal(t, event.UserNotificationCreated, got.Event)
	require.Equal(t, notification, got.Data)
}

func TestSession_UnknownEventIgnored(t *testing.T) {
	f := startSession(t, event.Actor{ID: "U1"}, &stubOracle{})

	f.publish(t, "email:unknown:event", event.Actor{ID: "U1"}, nil)
	f.rec.expectNone(t)

	// session still alive and delivering
	f.publish(t, event.LabelCreated, event.Actor{ID: "U1"}, map[string]any{"name": "x"})
	require.Equal(t, event.LabelCreated, f.rec.next(t).Event)
}

func TestSession_OracleErrorDropsOneMessage(t *testing.T) {
	oracle := &stubOracle{err: errors.New("oracle unreachable")}
	f := startSession(t, event.Actor{ID: "U1"}, oracle)

	f.publish(t, event.EmailShared, event.Actor{ID: "U2"}, map[string]any{"emailId": "E1"})
	f.rec.expectNone(t)

	// a later broadcast still goes through
	f.publish(t, event.LabelCreated, event.Actor{ID: "U2"}, map[string]any{"name": "x"})
	require.Equal(t, event.LabelCreated, f.rec.next(t).Event)
}

func TestSession_Heartbeat(t *testing.T) {
	b := bus.NewInMemoryBus()
	rec := newFrameRecorder()
	s, err := gateway.NewSession(gateway.SessionConfig{
		Viewer:    event.Actor{ID: "U1"},
		ClientID:  testClientID,
		Bus:       b,
		Registry:  dispatch.Default(&stubOracle{}),
		Writer:    rec,
		Heartbeat: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	for i := 0; i < 3; i++ {
		f := rec.next(t)
		require.Equal(t, "ping", f.Event)
		data, ok := f.Data.(map[string]any)
		require.True(t, ok)
		require.Contains(t, data, "date")
	}
}

func TestSession_DisconnectReleasesEverything(t *testing.T) {
	f := startSession(t, event.Actor{ID: "U1"}, &stubOracle{})

	f.cancel()
	select {
	case err := <-f.done:
		require.NoError(t, err)
	case <-time.After(1 * time.Second):
		t.Fatal("session did not stop")
	}

	require.Eventually(t, func() bool { return f.bus.Subscriptions() == 0 }, 1*time.Second, 5*time.Millisecond)

	// no further frames after close
	env, err := event.New("U1", event.LabelCreated, event.Actor{ID: "U1"}, nil)
	require.NoError(t, err)
	require.NoError(t, f.bus.Publish(t.Context(), env))
	f.rec.expectNone(t)
}

func TestSession_SubscribeFailureStillStopsHeartbeat(t *testing.T) {
	b := bus.NewInMemoryBus()
	b.Close()

	rec := newFrameRecorder()
	s, err := gateway.NewSession(gateway.SessionConfig{
		Viewer:    event.Actor{ID: "U1"},
		ClientID:  testClientID,
		Bus:       b,
		Registry:  dispatch.Default(&stubOracle{}),
		Writer:    rec,
		Heartbeat: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	err = s.Run(t.Context())
	require.ErrorIs(t, err, bus.ErrClosed)
	rec.expectNone(t, "ping")
}

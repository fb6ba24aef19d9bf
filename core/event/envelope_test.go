package event_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fabienmoyon/socialInbox/core/event"
)

func TestNew_Validates(t *testing.T) {
	sender := event.Actor{ID: "u1", Email: "u1@example.com"}

	env, err := event.New("u1", event.LabelCreated, sender, map[string]any{"name": "inbox-zero"})
	require.NoError(t, err)
	require.Equal(t, event.LabelCreated, env.Event)
	require.Equal(t, "u1", env.Sender.ID)
	require.False(t, env.OccurredAt.IsZero())

	_, err = event.New("u1", "", sender, nil)
	require.Error(t, err)

	_, err = event.New("u1", event.LabelCreated, event.Actor{}, nil)
	require.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	env, err := event.New("t1", event.EmailShared, event.Actor{ID: "u1"}, map[string]any{
		"emailId": "e1",
		"target":  map[string]any{"_id": "t1"},
	})
	require.NoError(t, err)

	data, err := env.Encode()
	require.NoError(t, err)

	got, err := event.Decode(data)
	require.NoError(t, err)
	require.Equal(t, env.Event, got.Event)
	require.Equal(t, env.Key, got.Key)
	require.Equal(t, "e1", got.PayloadString("emailId"))
	require.Equal(t, "t1", got.PayloadString("target", "_id"))
}

func TestDecode_RejectsInvalid(t *testing.T) {
	_, err := event.Decode([]byte(`{"key":"k","payload":{}}`))
	require.Error(t, err)

	_, err = event.Decode([]byte(`not-json`))
	require.Error(t, err)
}

func TestPayloadString_Missing(t *testing.T) {
	env, err := event.New("k", event.LabelCreated, event.Actor{ID: "u1"}, map[string]any{
		"n": 42,
	})
	require.NoError(t, err)
	require.Equal(t, "", env.PayloadString("missing"))
	require.Equal(t, "", env.PayloadString("n"))
	require.Equal(t, "", env.PayloadString("n", "deeper"))
}

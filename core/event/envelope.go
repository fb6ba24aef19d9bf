// Package event defines the envelope model shared by the write side
// (recorder, commands) and the read side (gateway) of the notification
// pipeline. An Envelope is immutable once constructed and carries everything
// a visibility policy needs to decide delivery.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Actor is an identity projection placed into envelopes and activities.
// It is a snapshot taken at publish time, never a mutable user record.
type Actor struct {
	ID          string `json:"_id"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// ActorFromUser projects a full user document down to the fields that are
// safe to place on the bus.
func ActorFromUser(id, displayName, email string) Actor {
	return Actor{ID: id, DisplayName: displayName, Email: email}
}

// Envelope wraps a domain event with routing metadata for the bus.
// Key determines per-key delivery order; Event drives registry dispatch.
type Envelope struct {
	// Key is the bus partition/routing key, typically an actor or target id.
	Key string `json:"key"`
	// Event is the event type name, e.g. "email:shared".
	Event string `json:"event"`
	// Sender identifies who caused the event.
	Sender Actor `json:"sender"`
	// Payload is the event-type-specific body. It must carry enough for a
	// visibility policy to decide without a second store round trip.
	Payload map[string]any `json:"payload"`
	// OccurredAt is when the envelope was built.
	OccurredAt time.Time `json:"occurred_at"`
}

// New builds a validated envelope. Event type and sender id are required up
// front: a malformed envelope is a construction error, not something a
// gateway discovers at delivery time.
func New(key, eventType string, sender Actor, payload map[string]any) (Envelope, error) {
	env := Envelope{
		Key:        key,
		Event:      eventType,
		Sender:     sender,
		Payload:    payload,
		OccurredAt: time.Now(),
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func (e Envelope) Validate() error {
	if e.Event == "" {
		return fmt.Errorf("envelope event type is empty")
	}
	if e.Sender.ID == "" {
		return fmt.Errorf("envelope sender id is empty")
	}
	return nil
}

// PayloadString returns a string field from the payload, descending into
// nested objects for each extra key. Missing or non-string values yield "".
func (e Envelope) PayloadString(keys ...string) string {
	cur := e.Payload
	for i, k := range keys {
		v, ok := cur[k]
		if !ok {
			return ""
		}
		if i == len(keys)-1 {
			s, _ := v.(string)
			return s
		}
		next, ok := v.(map[string]any)
		if !ok {
			return ""
		}
		cur = next
	}
	return ""
}

// Encode marshals the envelope for the wire.
func (e Envelope) Encode() ([]byte, error) { return json.Marshal(e) }

// Decode unmarshals an envelope from the wire and validates it.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

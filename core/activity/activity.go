// Package activity records what happened in the workspace. An activity is
// appended once to a user or email document and optionally forwarded to the
// notification bus; it is never updated or deleted.
package activity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fabienmoyon/socialInbox/core/event"
)

// Activity classifies one thing an actor did. Name doubles as the event type
// when the activity is forwarded to the bus.
type Activity struct {
	Name  string
	Actor event.Actor
	Date  time.Time
	// Detail holds free-form activity fields, stored and forwarded inline
	// next to name/actor/date.
	Detail map[string]any
}

// Validate checks the fields required before any persistence or publish
// attempt. A failing activity is rejected without touching the store.
func (a Activity) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("activity should have a name")
	}
	if a.Actor == (event.Actor{}) {
		return fmt.Errorf("activity should have an actor")
	}
	if a.Actor.ID == "" {
		return fmt.Errorf("activity should have an actor id")
	}
	if a.Date.IsZero() {
		return fmt.Errorf("activity should have a date")
	}
	return nil
}

// asMap flattens the activity into the document/payload shape: detail fields
// sit at the top level next to name, actor and date.
func (a Activity) asMap() map[string]any {
	m := make(map[string]any, len(a.Detail)+3)
	for k, v := range a.Detail {
		m[k] = v
	}
	m["name"] = a.Name
	m["actor"] = a.Actor
	m["date"] = a.Date
	return m
}

func (a Activity) MarshalJSON() ([]byte, error) { return json.Marshal(a.asMap()) }

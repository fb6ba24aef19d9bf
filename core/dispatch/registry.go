package dispatch

import (
	"sync"

	"github.com/fabienmoyon/socialInbox/core/event"
)

// Registry maps event type names to visibility policies. It replaces the
// per-event conditional chain with a closed table built at startup: adding
// an event type is one Register call.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

func NewRegistry() *Registry {
	return &Registry{policies: map[string]Policy{}}
}

func (r *Registry) Register(eventType string, p Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[eventType] = p
}

// Lookup returns the policy for an event type. Unknown types report false;
// the gateway ignores them silently so new event types need no action from
// already-running sessions.
func (r *Registry) Lookup(eventType string) (Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[eventType]
	return p, ok
}

// Types returns the registered event type names.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.policies))
	for t := range r.policies {
		out = append(out, t)
	}
	return out
}

// Default builds the production dispatch table.
func Default(oracle PermissionOracle) *Registry {
	r := NewRegistry()

	emailScoped := ResourceScoped(oracle)
	for _, t := range []string{
		event.EmailShared,
		event.ChatMessagePosted,
		event.ChatStarted,
		event.EmailLabelAdded,
		event.EmailLabelRemoved,
		event.EmailTaskCreated,
		event.EmailUserAdded,
		event.EmailTaskDoneStatusUpdated,
	} {
		r.Register(t, emailScoped)
	}

	r.Register(event.EmailDelivered, ResourceScopedAttach(oracle))

	r.Register(event.LabelCreated, Broadcast())
	r.Register(event.AutomationCreated, Broadcast())

	r.Register(event.ChatMessageLastSeenPointerMoved, SenderEcho())
	r.Register(event.EmailUserStateSeenUpdated, SenderEcho())

	r.Register(event.UserNotificationCreated, TargetedUser())
	r.Register(event.UserNotificationsSeenUpdated, TargetedUser())

	return r
}

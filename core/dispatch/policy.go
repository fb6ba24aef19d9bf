// Package dispatch decides, per event type, whether a connected viewer may
// see a bus message and in what shape. Policies are pure predicates plus an
// optional payload transform; the only side effect allowed is the
// authorization lookup itself.
package dispatch

import (
	"context"

	"github.com/fabienmoyon/socialInbox/core/event"
)

// PermissionOracle answers whether a viewer may see a resource, returning
// the (enriched) resource when visible and nil when not. An error means the
// answer is unknown; callers must fail closed.
type PermissionOracle interface {
	ResolveIfAuthorized(ctx context.Context, viewer event.Actor, resourceID string) (map[string]any, error)
}

// Decision is a policy's verdict for one message and one viewer.
type Decision struct {
	Deliver bool
	// Payload is the outgoing payload when Deliver is true. Policies never
	// mutate the envelope's own payload.
	Payload map[string]any
}

// Policy evaluates one envelope against one viewer.
type Policy func(ctx context.Context, env event.Envelope, viewer event.Actor) (Decision, error)

var drop = Decision{}

// Broadcast delivers to every subscriber unconditionally.
func Broadcast() Policy {
	return func(_ context.Context, env event.Envelope, _ event.Actor) (Decision, error) {
		return Decision{Deliver: true, Payload: env.Payload}, nil
	}
}

// SenderEcho delivers only when the message's sender is the viewer. Used for
// echoes of the viewer's own prior action to their other devices.
func SenderEcho() Policy {
	return func(_ context.Context, env event.Envelope, viewer event.Actor) (Decision, error) {
		if env.Sender.ID != viewer.ID {
			return drop, nil
		}
		return Decision{Deliver: true, Payload: env.Payload}, nil
	}
}

// TargetedUser delivers only when the payload names the viewer as its
// recipient under user._id.
func TargetedUser() Policy {
	return func(_ context.Context, env event.Envelope, viewer event.Actor) (Decision, error) {
		if env.PayloadString("user", "_id") != viewer.ID {
			return drop, nil
		}
		return Decision{Deliver: true, Payload: env.Payload}, nil
	}
}

// ResourceScoped delivers only when the oracle authorizes the viewer against
// the email referenced by payload.emailId.
func ResourceScoped(oracle PermissionOracle) Policy {
	return func(ctx context.Context, env event.Envelope, viewer event.Actor) (Decision, error) {
		_, ok, err := resolveEmail(ctx, oracle, env, viewer)
		if err != nil || !ok {
			return drop, err
		}
		return Decision{Deliver: true, Payload: env.Payload}, nil
	}
}

// ResourceScopedAttach is ResourceScoped with the fetched email attached to
// the outgoing payload under "email".
func ResourceScopedAttach(oracle PermissionOracle) Policy {
	return func(ctx context.Context, env event.Envelope, viewer event.Actor) (Decision, error) {
		email, ok, err := resolveEmail(ctx, oracle, env, viewer)
		if err != nil || !ok {
			return drop, err
		}
		payload := make(map[string]any, len(env.Payload)+1)
		for k, v := range env.Payload {
			payload[k] = v
		}
		payload["email"] = email
		return Decision{Deliver: true, Payload: payload}, nil
	}
}

func resolveEmail(ctx context.Context, oracle PermissionOracle, env event.Envelope, viewer event.Actor) (map[string]any, bool, error) {
	emailID := env.PayloadString("emailId")
	if emailID == "" {
		return nil, false, nil
	}
	email, err := oracle.ResolveIfAuthorized(ctx, viewer, emailID)
	if err != nil {
		return nil, false, err
	}
	if email == nil {
		return nil, false, nil
	}
	return email, true, nil
}

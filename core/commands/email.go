// Package commands builds and publishes the envelopes for email domain
// commands. Business rules are validated by the callers; this layer only
// projects records down to bus-safe shapes and routes them.
package commands

import (
	"context"
	"log/slog"

	"github.com/fabienmoyon/socialInbox/core/bus"
	"github.com/fabienmoyon/socialInbox/core/event"
)

// Label is the projection of a label placed into payloads.
type Label struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	ColorID int    `json:"colorId"`
}

type ProducerConfig struct {
	Bus bus.Publisher
	Log *slog.Logger // Log for diagnostics (optional)
}

// Producer publishes command events. Every publish failure is returned to
// the caller and logged; nothing is silently dropped.
type Producer struct {
	bus bus.Publisher
	log *slog.Logger
}

func NewProducer(cfg ProducerConfig) *Producer {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Producer{
		bus: cfg.Bus,
		log: log.With(slog.String("component", "commands")),
	}
}

func (p *Producer) publish(ctx context.Context, key, eventType string, sender event.Actor, payload map[string]any) error {
	env, err := event.New(key, eventType, sender, payload)
	if err != nil {
		p.log.Error("failed to build envelope", slog.Any("error", err), slog.String("event", eventType))
		return err
	}
	if err := p.bus.Publish(ctx, env); err != nil {
		p.log.Error("failed to publish", slog.Any("error", err), slog.String("event", eventType))
		return err
	}
	p.log.Debug("published", slog.String("event", eventType), slog.String("key", key))
	return nil
}

// AddShare announces that actor shared an email with target. The envelope is
// keyed by the target so the recipient sees shares in order.
func (p *Producer) AddShare(ctx context.Context, user, actor, target event.Actor, emailID string) error {
	return p.publish(ctx, target.ID, event.EmailShared, user, map[string]any{
		"emailId": emailID,
		"actor":   actor,
		"target":  target,
	})
}

// SetLabels announces the full replacement of an email's label set.
func (p *Producer) SetLabels(ctx context.Context, actor event.Actor, emailID string, labels []Label) error {
	return p.publish(ctx, actor.ID, event.EmailLabelsUpdate, actor, map[string]any{
		"emailId": emailID,
		"labels":  labels,
	})
}

// AddLabel announces a single label added to an email.
func (p *Producer) AddLabel(ctx context.Context, actor event.Actor, emailID string, label Label) error {
	return p.publish(ctx, actor.ID, event.EmailLabelAdd, actor, map[string]any{
		"emailId": emailID,
		"label":   label,
	})
}

// UpdateSeenState announces the actor's own read-state change. Keyed by the
// actor; the gateway echoes it back only to the actor's other devices.
func (p *Producer) UpdateSeenState(ctx context.Context, actor event.Actor, emailID string, seen bool) error {
	return p.publish(ctx, actor.ID, event.EmailUserStateSeenWrite, actor, map[string]any{
		"emailId": emailID,
		"state":   seen,
		"actor":   actor,
	})
}

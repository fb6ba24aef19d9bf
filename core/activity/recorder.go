package activity

import (
	"context"
	"log/slog"

	"github.com/fabienmoyon/socialInbox/core/bus"
	"github.com/fabienmoyon/socialInbox/core/event"
	"github.com/fabienmoyon/socialInbox/ports/store"
)

// RecorderMetrics instruments the write side.
type RecorderMetrics interface {
	ActivityRecorded(scoped bool, success bool)
	ForwardPublishFailed(eventType string)
}

type nopRecorderMetrics struct{}

func (nopRecorderMetrics) ActivityRecorded(bool, bool) {}
func (nopRecorderMetrics) ForwardPublishFailed(string) {}

func NopRecorderMetrics() RecorderMetrics { return nopRecorderMetrics{} }

type RecorderConfig struct {
	Store   store.ActivityStore
	Bus     bus.Publisher   // Bus is only needed when activities are forwarded (optional)
	Log     *slog.Logger    // Log for diagnostics (optional)
	Metrics RecorderMetrics // Metrics sink (optional)
}

// Recorder validates and durably records activities. It is stateless over
// the store; failures surface as a false result, never as a panic or a hang.
type Recorder struct {
	store   store.ActivityStore
	bus     bus.Publisher
	log     *slog.Logger
	metrics RecorderMetrics
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NopRecorderMetrics()
	}
	return &Recorder{
		store:   cfg.Store,
		bus:     cfg.Bus,
		log:     log.With(slog.String("component", "activity")),
		metrics: metrics,
	}
}

type recordOpts struct {
	scopeID string
	forward bool
}

type RecordOption func(*recordOpts)

// WithScope appends the activity to the email document identified by emailID
// instead of the actor's global document.
func WithScope(emailID string) RecordOption {
	return func(o *recordOpts) { o.scopeID = emailID }
}

// WithForward publishes a notification envelope after a successful append.
func WithForward() RecordOption {
	return func(o *recordOpts) { o.forward = true }
}

// Record appends the activity and, when requested, forwards it to the bus.
// Validation and store failures are normal, loggable outcomes reported as
// false. A publish failure after a successful append is logged and counted
// but does not flip the result; the store is the source of truth and the bus
// a notification side-channel.
func (r *Recorder) Record(ctx context.Context, a Activity, opts ...RecordOption) bool {
	var options recordOpts
	for _, opt := range opts {
		opt(&options)
	}

	if err := a.Validate(); err != nil {
		r.log.Warn("rejecting activity", slog.Any("error", err), slog.String("name", a.Name))
		return false
	}

	collection, docID := store.CollectionUserInfos, a.Actor.ID
	if options.scopeID != "" {
		collection, docID = store.CollectionEmails, options.scopeID
	}

	res, err := r.store.AppendToArray(ctx, collection, docID, store.FieldActivity, a)
	if err != nil {
		r.log.Error("store error on activity",
			slog.Any("error", err),
			slog.String("collection", collection),
			slog.String("document", docID),
		)
		r.metrics.ActivityRecorded(options.scopeID != "", false)
		return false
	}
	if res.Modified != 1 {
		r.log.Error("activity append modified no document",
			slog.String("collection", collection),
			slog.String("document", docID),
			slog.Int64("modified", res.Modified),
		)
		r.metrics.ActivityRecorded(options.scopeID != "", false)
		return false
	}
	r.metrics.ActivityRecorded(options.scopeID != "", true)

	if options.forward {
		r.forward(ctx, a, options.scopeID)
	}

	return true
}

func (r *Recorder) forward(ctx context.Context, a Activity, scopeID string) {
	if r.bus == nil {
		r.log.Warn("no bus configured, dropping forward", slog.String("name", a.Name))
		r.metrics.ForwardPublishFailed(a.Name)
		return
	}

	payload := a.asMap()
	if scopeID != "" {
		payload["emailId"] = scopeID
	}

	env, err := event.New(a.Actor.ID, a.Name, a.Actor, payload)
	if err != nil {
		r.log.Error("failed to build notification envelope", slog.Any("error", err))
		r.metrics.ForwardPublishFailed(a.Name)
		return
	}
	if err := r.bus.Publish(ctx, env); err != nil {
		r.log.Error("failed to publish notification",
			slog.Any("error", err),
			slog.String("event", env.Event),
		)
		r.metrics.ForwardPublishFailed(a.Name)
	}
}

// Package gateway bridges one bus subscription to one streaming HTTP
// response. A session exclusively owns its subscription and its stream for
// its whole lifetime and releases both exactly once on disconnect.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/fabienmoyon/socialInbox/core/bus"
	"github.com/fabienmoyon/socialInbox/core/dispatch"
	"github.com/fabienmoyon/socialInbox/core/event"
)

// MinClientIDLen is the minimum accepted clientId length. Shorter ids are
// too easy to guess or collide on as subscription identifiers.
const MinClientIDLen = 12

const defaultHeartbeat = 3 * time.Second

var (
	ErrNoViewer      = errors.New("authentication needed")
	ErrClientIDShort = fmt.Errorf("clientId should be at least %d chars long", MinClientIDLen)
)

// ValidateClientID rejects client-chosen subscription identifiers that are
// too short.
func ValidateClientID(clientID string) error {
	if len(clientID) < MinClientIDLen {
		return ErrClientIDShort
	}
	return nil
}

type SessionConfig struct {
	Viewer    event.Actor
	ClientID  string
	Bus       bus.Bus
	Registry  *dispatch.Registry
	Writer    StreamWriter
	Log       *slog.Logger   // Log for diagnostics (optional)
	Heartbeat time.Duration  // Heartbeat interval, default 3s
	Metrics   SessionMetrics // Metrics sink (optional)
}

// Session is the per-connection controller. Viewer and clientId are fixed at
// construction; Run drives the Connecting -> Streaming -> Closed lifecycle.
type Session struct {
	id        string
	viewer    event.Actor
	clientID  string
	bus       bus.Bus
	registry  *dispatch.Registry
	writer    StreamWriter
	log       *slog.Logger
	heartbeat time.Duration
	metrics   SessionMetrics
}

// NewSession validates the connection inputs and builds a session. No
// resources are allocated here; a rejected connection costs nothing.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Viewer.ID == "" {
		return nil, ErrNoViewer
	}
	if err := ValidateClientID(cfg.ClientID); err != nil {
		return nil, err
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	heartbeat := cfg.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NopSessionMetrics()
	}

	id := gonanoid.Must(8)
	return &Session{
		id:        id,
		viewer:    cfg.Viewer,
		clientID:  cfg.ClientID,
		bus:       cfg.Bus,
		registry:  cfg.Registry,
		writer:    cfg.Writer,
		heartbeat: heartbeat,
		metrics:   metrics,
		log: log.With(
			slog.String("sse", id),
			slog.String("viewer", cfg.Viewer.ID),
		),
	}, nil
}

// ID returns the session correlation id used in logs.
func (s *Session) ID() string { return s.id }

// Run streams until ctx is cancelled (the transport close signal) or the
// stream breaks. The heartbeat and the bus feed are multiplexed through one
// select loop, so every write to the stream is made by this single
// goroutine and frames can never interleave.
func (s *Session) Run(ctx context.Context) error {
	s.log.Info("connected", slog.String("client_id", s.clientID))
	s.metrics.SessionOpened()
	defer s.metrics.SessionClosed()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	sub, err := s.bus.Subscribe(ctx, s.clientID)
	if err != nil {
		// the ticker is already released; a session that never subscribed
		// has nothing else to clean up
		return fmt.Errorf("subscribe %q: %w", s.clientID, err)
	}
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("connection closed")
			return nil

		case <-ticker.C:
			if err := s.writer.WriteFrame("ping", map[string]any{"date": time.Now().UnixMilli()}); err != nil {
				s.log.Debug("heartbeat write failed, closing", slog.Any("error", err))
				return nil
			}

		case env := <-sub.Chan():
			if err := s.handle(ctx, env); err != nil {
				return nil
			}
		}
	}
}

// handle applies the visibility policy for one inbound envelope. Policy and
// authorization failures drop that one message; only a broken stream ends
// the session.
func (s *Session) handle(ctx context.Context, env event.Envelope) error {
	select {
	case <-ctx.Done():
		// closing; no further writes
		return nil
	default:
	}

	log := s.log.With(slog.String("event", env.Event), slog.String("key", env.Key))

	policy, ok := s.registry.Lookup(env.Event)
	if !ok {
		log.Debug("no policy for event, ignoring")
		s.metrics.MessageDropped(env.Event, DropUnknownType)
		return nil
	}

	decision, err := policy(ctx, env, s.viewer)
	if err != nil {
		// fail closed: an unanswered check means no delivery
		log.Error("visibility check failed, dropping", slog.Any("error", err))
		s.metrics.MessageDropped(env.Event, DropCheckFailed)
		return nil
	}
	if !decision.Deliver {
		log.Debug("filtered for viewer")
		s.metrics.MessageDropped(env.Event, DropFiltered)
		return nil
	}

	if err := s.writer.WriteFrame(env.Event, decision.Payload); err != nil {
		log.Debug("frame write failed, closing", slog.Any("error", err))
		return err
	}
	s.metrics.FrameSent(env.Event)
	return nil
}

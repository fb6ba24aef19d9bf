package nats

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/crypto/blake2b"

	"github.com/fabienmoyon/socialInbox/core/bus"
	"github.com/fabienmoyon/socialInbox/core/event"
)

const (
	defaultSubjectPrefix = "socialinbox.events"
	defaultStreamName    = "SOCIALINBOX_EVENTS"

	subBuffer = 64
)

type BusConfig struct {
	Connect       Connector    // Connect is used to create the underlying NATS connection. If nil, ConnectDefault() is used.
	Log           *slog.Logger // Log for diagnostics (optional)
	SubjectPrefix string       // SubjectPrefix for keyed subjects, e.g. "socialinbox.events" -> socialinbox.events.<key>
	StreamName    string
}

// Bus implements the bus port on a JetStream stream. Publishing routes by
// partition key subject; each Subscribe creates its own consumer so every
// client gets the full ordered feed.
type Bus struct {
	nc            *natsgo.Conn
	closeNc       closeFunc
	js            jetstream.JetStream
	stream        jetstream.Stream
	log           *slog.Logger
	subjectPrefix string
	streamName    string
}

func NewBus(cfg BusConfig) (*Bus, error) {
	doConnect := cfg.Connect
	if doConnect == nil {
		doConnect = ConnectDefault()
	}

	nc, closeNatsCon, err := doConnect()
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		closeNatsCon()
		return nil, err
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	streamName := strings.ToUpper(cfg.StreamName)
	if streamName == "" {
		streamName = defaultStreamName
	}
	subjectPrefix := cfg.SubjectPrefix
	if subjectPrefix == "" {
		subjectPrefix = defaultSubjectPrefix
	}

	log = log.With(
		slog.String("bus", "nats_js"),
		slog.String("stream", streamName),
	)

	log.Debug("ensuring stream")

	stream, streamInfo, err := ensureStream(js, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPrefix + ".>"},
		FirstSeq: 1,
	})
	if err != nil {
		closeNatsCon()
		return nil, err
	}

	log.Info("ensured", slog.Any("stream", streamInfo))

	return &Bus{
		nc:            nc,
		closeNc:       closeNatsCon,
		js:            js,
		stream:        stream,
		log:           log,
		subjectPrefix: subjectPrefix,
		streamName:    streamName,
	}, nil
}

func ensureStream(js jetstream.JetStream, cfg jetstream.StreamConfig) (s jetstream.Stream, si *jetstream.StreamInfo, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*natsgo.DefaultTimeout)
	defer cancel()

	s, err = js.CreateOrUpdateStream(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	si, err = s.Info(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s, si, nil
}

func (b *Bus) Close() error {
	b.js.CleanupPublisher()
	b.closeNc()
	b.log.Debug("closed bus")
	return nil
}

// subjectForKey maps a partition key onto a single subject token. Keys share
// a subject iff they are equal, which preserves per-key publish order.
func (b *Bus) subjectForKey(key string) string {
	if key == "" {
		key = "_"
	}
	replacer := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")
	return b.subjectPrefix + "." + replacer.Replace(key)
}

// consumerNameFor derives a JetStream-safe consumer name from the
// client-chosen id, which may contain characters a consumer name cannot.
func consumerNameFor(clientID string) string {
	sum := blake2b.Sum256([]byte(clientID))
	return "sse-" + hex.EncodeToString(sum[:8])
}

func (b *Bus) Publish(ctx context.Context, env event.Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}
	data, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	subj := b.subjectForKey(env.Key)
	if _, err := b.js.Publish(ctx, subj, data); err != nil {
		return fmt.Errorf("nats: publish %s: %w", subj, err)
	}
	b.log.Debug("published", slog.String("event", env.Event), slog.String("subject", subj))
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, clientID string) (bus.Subscription, error) {
	name := consumerNameFor(clientID)

	consumer, err := b.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:              name,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		InactiveThreshold: 10 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("nats: create consumer %s: %w", name, err)
	}

	b.log.Info("subscribed", slog.String("consumer", name), slog.String("client_id", clientID))

	ch := make(chan event.Envelope, subBuffer)
	ctx, cancel := context.WithCancel(ctx)

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := msg.Ack(); err != nil {
			b.log.Error("failed to ack message", slog.Any("error", err))
			return
		}

		env, err := event.Decode(msg.Data())
		if err != nil {
			b.log.Error("failed to decode envelope", slog.Any("error", err))
			return
		}

		select {
		case ch <- env:
		case <-ctx.Done():
		}
	})
	if err != nil {
		cancel()
		return nil, err
	}

	stopOnce := sync.Once{}
	stop := func() {
		stopOnce.Do(func() {
			cc.Drain()
			cancel()
		})
	}

	context.AfterFunc(ctx, stop)

	return &jsSubscription{ch: ch, cancel: stop}, nil
}

type jsSubscription struct {
	ch     chan event.Envelope
	cancel func()
}

func (s *jsSubscription) Chan() <-chan event.Envelope { return s.ch }
func (s *jsSubscription) Cancel()                     { s.cancel() }

var _ bus.Bus = (*Bus)(nil)

package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/fabienmoyon/socialInbox/adapters/api"
	"github.com/fabienmoyon/socialInbox/adapters/mongo"
	"github.com/fabienmoyon/socialInbox/adapters/nats"
	"github.com/fabienmoyon/socialInbox/adapters/prometheus"
	"github.com/fabienmoyon/socialInbox/core/activity"
	"github.com/fabienmoyon/socialInbox/core/bus"
	"github.com/fabienmoyon/socialInbox/core/commands"
	"github.com/fabienmoyon/socialInbox/core/dispatch"
	"github.com/fabienmoyon/socialInbox/core/event"
	"github.com/fabienmoyon/socialInbox/ports/store"
)

type Config struct {
	Addr      string        `env:"ADDR" envDefault:":8080"`
	Backend   string        `env:"BACKEND" envDefault:"memory"` // memory | nats
	NatsURL   string        `env:"NATS_URL"`
	MongoURI  string        `env:"MONGO_URI"`
	MongoDB   string        `env:"MONGO_DB" envDefault:"socialinbox"`
	Heartbeat time.Duration `env:"SSE_HEARTBEAT" envDefault:"3s"`
	LogLevel  slog.Level    `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// App wires the whole pipeline: store, bus, recorder, producer, dispatch
// table and HTTP surface. The memory backend keeps everything in-process
// for dev and tests; the nats backend talks to JetStream and MongoDB.
type App struct {
	ctx          context.Context
	cancelCtx    context.CancelFunc
	log          *slog.Logger
	cfg          Config
	server       *api.Server
	recorder     *activity.Recorder
	producer     *commands.Producer
	bus          bus.Bus
	store        store.ActivityStore
	closers      []func()
	shutdownOnce sync.Once
}

// denyAllOracle backs the memory backend; resource-scoped events are
// dropped because nothing can vouch for the viewer. Fail closed.
type denyAllOracle struct{}

func (denyAllOracle) ResolveIfAuthorized(context.Context, event.Actor, string) (map[string]any, error) {
	return nil, nil
}

func New(ctx context.Context, cfg Config, opts ...Option) (a *App, err error) {
	options := newOptions(opts...)

	a = &App{cfg: cfg}

	// === logger ===
	log := options.log
	if log == nil {
		log = slog.Default()
	}
	a.log = log

	// === context ===
	if ctx == nil {
		ctx = context.Background()
	}
	a.ctx, a.cancelCtx = context.WithCancel(ctx)
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	// === metrics ===
	reg := options.promRegistry
	if reg == nil {
		reg = prom.NewRegistry()
	}
	metrics := prometheus.NewAllMetrics(reg)

	// === backends ===
	var (
		activityStore store.ActivityStore
		oracle        dispatch.PermissionOracle
	)

	switch cfg.Backend {
	case "nats":
		connect := nats.ConnectDefault()
		if cfg.NatsURL != "" {
			connect = nats.ConnectURL(cfg.NatsURL)
		}
		natsBus, err := nats.NewBus(nats.BusConfig{Connect: connect, Log: log})
		if err != nil {
			return nil, fmt.Errorf("nats bus: %w", err)
		}
		a.bus = natsBus
		a.closers = append(a.closers, func() { _ = natsBus.Close() })

		db, closeDB, err := mongo.Connect(a.ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		a.closers = append(a.closers, closeDB)
		activityStore = mongo.NewStore(db)
		oracle = mongo.NewPermissionOracle(db, log)

	case "memory", "":
		memBus := bus.NewInMemoryBus()
		a.bus = memBus
		a.closers = append(a.closers, memBus.Close)
		activityStore = store.NewMemStore()
		oracle = denyAllOracle{}

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	a.store = activityStore

	// === pipeline ===
	a.recorder = activity.NewRecorder(activity.RecorderConfig{
		Store:   activityStore,
		Bus:     a.bus,
		Log:     log,
		Metrics: metrics.Recorder,
	})
	a.producer = commands.NewProducer(commands.ProducerConfig{Bus: a.bus, Log: log})

	a.server = api.NewServer(api.ServerConfig{
		Addr:      cfg.Addr,
		Bus:       a.bus,
		Registry:  dispatch.Default(oracle),
		Auth:      api.HeaderAuth(),
		Log:       log,
		Heartbeat: cfg.Heartbeat,
		Metrics:   metrics.Gateway,
		Gatherer:  reg,
	})

	return a, nil
}

func (a *App) Recorder() *activity.Recorder { return a.recorder }
func (a *App) Producer() *commands.Producer { return a.producer }
func (a *App) Bus() bus.Bus                 { return a.bus }
func (a *App) Store() store.ActivityStore   { return a.store }
func (a *App) Server() *api.Server          { return a.server }

// Run serves HTTP until the context given to New is cancelled or Shutdown
// is called.
func (a *App) Run() error {
	a.log.Info("app started", slog.String("backend", a.cfg.Backend), slog.String("addr", a.cfg.Addr))
	return a.server.Run(a.ctx)
}

func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.log.Info("shutting down")
		a.cancelCtx()
		a.close()
	})
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fabienmoyon/socialInbox/core/app"
)

// NOTE: run nats: docker run --net=host nats:latest -js

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("config", slog.Any("error", err))
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.WithLog(log))
	if err != nil {
		log.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer a.Shutdown()

	if err := a.Run(); err != nil {
		log.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

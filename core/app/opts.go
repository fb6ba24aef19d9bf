package app

import (
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"
)

type options struct {
	log          *slog.Logger
	promRegistry *prom.Registry
}

type Option func(*options)

func WithLog(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithPromRegistry installs a caller-owned Prometheus registry instead of a
// fresh one.
func WithPromRegistry(reg *prom.Registry) Option {
	return func(o *options) { o.promRegistry = reg }
}

func newOptions(opts ...Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

package hxstate

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPrefix     = "/_s/"
	defaultTracerName = "hxstate"
)

// Option configures a Store or a Registry. Each reads only the settings it
// uses.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	metrics   *Metrics
	prefix    string
	sensitive bool
	tracer    trace.Tracer
}

func applyOptions(opts []Option) options {
	o := options{prefix: defaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(defaultTracerName)
	}
	return o
}

// WithLogger sets the structured logger. If nil, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics attaches Prometheus metrics to a Store.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithPrefix sets the URL prefix the Registry serves instances under.
// Defaults to "/_s/".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		if prefix == "" {
			return
		}
		if prefix[len(prefix)-1] != '/' {
			prefix += "/"
		}
		o.prefix = prefix
	}
}

// WithSensitiveTickets makes the Registry encrypt dispatch tickets instead of
// signing them, so actions and payloads are opaque to clients.
func WithSensitiveTickets() Option {
	return func(o *options) {
		o.sensitive = true
	}
}

// WithTracer sets the tracer used for Registry request spans. Defaults to
// the global tracer provider's "hxstate" tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

package engine

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "github.com/vango-dev/vtree/pkg/engine"

type options struct {
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	rootProps any
	onDirty   func()
}

// Option configures a VirtualDom.
type Option func(*options)

// WithLogger sets the logger. Default: slog.Default() with component=engine.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records drive cycles into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer sets the tracer used for drive-cycle spans.
// Default: the global OpenTelemetry tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithRootProps sets the props passed to the root component.
func WithRootProps(props any) Option {
	return func(o *options) {
		o.rootProps = props
	}
}

// WithDirtyNotify registers fn to be called whenever a scope becomes dirty.
// fn runs on the goroutine that wrote the state and must not block.
func WithDirtyNotify(fn func()) Option {
	return func(o *options) {
		o.onDirty = fn
	}
}

func defaultOptions() options {
	return options{
		logger: slog.Default().With("component", "engine"),
		tracer: otel.Tracer(defaultTracerName),
	}
}

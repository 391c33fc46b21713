package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// MetricsConfig configures engine metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vtree").
	Namespace string

	// Subsystem is the metrics subsystem (default: "engine").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for drive duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures engine metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "vtree",
		Subsystem: "engine",
		Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors for one or more VirtualDoms.
// Several VirtualDoms may share a Metrics; gauges then reflect the most
// recent drive call.
type Metrics struct {
	scopesRendered prometheus.Counter
	edits          *prometheus.CounterVec
	renderErrors   prometheus.Counter
	scopesRemoved  prometheus.Counter
	dirtyScopes    prometheus.Gauge
	liveScopes     prometheus.Gauge
	mountIDsLive   prometheus.Gauge
	driveDuration  *prometheus.HistogramVec
}

// NewMetrics creates and registers engine metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		scopesRendered: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "scopes_rendered_total",
			Help:        "Total number of scope render function runs",
			ConstLabels: config.ConstLabels,
		}),

		edits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "edits_total",
			Help:        "Total number of edits emitted, by op",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		renderErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_errors_total",
			Help:        "Total number of failed renders",
			ConstLabels: config.ConstLabels,
		}),

		scopesRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "scopes_removed_total",
			Help:        "Total number of scopes torn down",
			ConstLabels: config.ConstLabels,
		}),

		dirtyScopes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dirty_scopes",
			Help:        "Scopes waiting to be rendered after the last drive call",
			ConstLabels: config.ConstLabels,
		}),

		liveScopes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_scopes",
			Help:        "Live scopes after the last drive call",
			ConstLabels: config.ConstLabels,
		}),

		mountIDsLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mount_ids_live",
			Help:        "Mount ids held by renderer nodes after the last drive call",
			ConstLabels: config.ConstLabels,
		}),

		driveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "drive_duration_seconds",
			Help:        "Drive call duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"call"}),
	}
}

func (m *Metrics) observeEdits(edits []vdom.Edit) {
	counts := make(map[vdom.EditOp]int)
	for _, e := range edits {
		counts[e.Op]++
	}
	for op, n := range counts {
		m.edits.WithLabelValues(op.String()).Add(float64(n))
	}
}

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HostMetrics holds the Prometheus collectors for a Host.
type HostMetrics struct {
	framesSent  *prometheus.CounterVec
	bytesSent   prometheus.Counter
	events      *prometheus.CounterVec
	connections prometheus.Gauge
	resyncs     *prometheus.CounterVec
	editSeq     prometheus.Gauge
}

// NewHostMetrics creates and registers host metrics on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewHostMetrics(reg prometheus.Registerer, namespace string) *HostMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "vtree"
	}
	factory := promauto.With(reg)
	const subsystem = "host"

	return &HostMetrics{
		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_sent_total",
			Help:      "Frames written to the renderer, by frame type",
		}, []string{"type"}),

		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes_sent_total",
			Help:      "Bytes written to the renderer",
		}),

		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_total",
			Help:      "Renderer events, by outcome",
		}, []string{"result"}),

		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connections",
			Help:      "Open renderer connections",
		}),

		resyncs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "resyncs_total",
			Help:      "Renderer resynchronizations, by kind",
		}, []string{"kind"}),

		editSeq: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "edit_seq",
			Help:      "Sequence number of the last published edit script",
		}),
	}
}

func (m *HostMetrics) frameSent(kind string, n int) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(kind).Inc()
	m.bytesSent.Add(float64(n))
}

func (m *HostMetrics) event(result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(result).Inc()
}

func (m *HostMetrics) resync(kind string) {
	if m == nil {
		return
	}
	m.resyncs.WithLabelValues(kind).Inc()
}

func (m *HostMetrics) connected(delta float64) {
	if m == nil {
		return
	}
	m.connections.Add(delta)
}

func (m *HostMetrics) published(seq uint64) {
	if m == nil {
		return
	}
	m.editSeq.Set(float64(seq))
}

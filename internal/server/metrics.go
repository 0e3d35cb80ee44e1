package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the server's prometheus registry. All series are prefixed
// cardroom_.
type Metrics struct {
	registry *prometheus.Registry

	Commands      *prometheus.CounterVec
	Rejected      *prometheus.CounterVec
	EventsDropped prometheus.Counter
	RoundsSettled *prometheus.CounterVec
	Subscribers   prometheus.Gauge
	RoundSeconds  prometheus.Histogram
}

// NewMetrics builds a registry with every server series registered.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cardroom_commands_total",
			Help: "Commands accepted into a channel queue, by kind.",
		}, []string{"kind"}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cardroom_command_rejected_total",
			Help: "Commands rejected before reaching a channel, by reason.",
		}, []string{"reason"}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardroom_events_dropped_total",
			Help: "Events dropped because a subscriber's buffer was full.",
		}),
		RoundsSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cardroom_rounds_settled_total",
			Help: "Rounds settled, by mode.",
		}, []string{"mode"}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cardroom_subscribers",
			Help: "Live channel subscriptions across all sessions.",
		}),
		RoundSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardroom_round_duration_seconds",
			Help:    "Wall time from deal to settlement.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// RegisterChannelGauge exposes the live channel count once the arena exists.
func (m *Metrics) RegisterChannelGauge(count func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cardroom_active_channels",
		Help: "Channels currently running a loop.",
	}, count))
}

// Handler serves the registry for the admin mux.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

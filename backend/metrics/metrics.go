package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "watchparty"

type Metrics struct {
	Connections     prometheus.Gauge
	Events          *prometheus.CounterVec
	Dropped         *prometheus.CounterVec
	DeadEndpoints   prometheus.Counter
	SyncRequests    prometheus.Counter
	SyncRelayed     prometheus.Counter
	PresenceChanges *prometheus.CounterVec
}

// New creates hub collectors and registers them with reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of live connections attached to the hub.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_total",
			Help:      "Inbound events processed by the hub.",
		}, []string{"type"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_events_total",
			Help:      "Inbound events discarded without effect.",
		}, []string{"reason"}),
		DeadEndpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dead_endpoints_total",
			Help:      "Connections cut off because their outbound queue was full.",
		}),
		SyncRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_requests_total",
			Help:      "request-sync directives sent to reference peers.",
		}),
		SyncRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_relayed_total",
			Help:      "sync-state frames delivered to joining peers.",
		}),
		PresenceChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_changes_total",
			Help:      "Room membership transitions.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Connections,
			m.Events,
			m.Dropped,
			m.DeadEndpoints,
			m.SyncRequests,
			m.SyncRelayed,
			m.PresenceChanges,
		)
	}
	return m
}

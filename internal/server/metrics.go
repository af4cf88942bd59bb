package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the server's Prometheus collectors. All collectors are
// registered on an instance registry so tests can run many servers in one
// process.
type Metrics struct {
	ConnectionsTotal    prometheus.Counter
	ActiveSessions      prometheus.Gauge
	FramesTotal         *prometheus.CounterVec
	HangupsTotal        prometheus.Counter
	RelayTransfersTotal prometheus.Counter
	RelayBytesTotal     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaychat_connections_total",
			Help: "Control connections accepted since start.",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relaychat_active_sessions",
			Help: "Currently open control connections.",
		}),
		FramesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relaychat_frames_total",
			Help: "Inbound control frames by command verb.",
		}, []string{"command"}),
		HangupsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaychat_hangups_total",
			Help: "Sessions evicted for a missed PONG.",
		}),
		RelayTransfersTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaychat_relay_transfers_total",
			Help: "Completed byte-relay transfers.",
		}),
		RelayBytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaychat_relay_bytes_total",
			Help: "Bytes copied sender to receiver across all transfers.",
		}),
	}
}

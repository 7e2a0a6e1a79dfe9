// Package metrics exposes the Prometheus collectors for connection counts,
// replication round trips, election events, and pump throughput.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps every Prometheus collector gochat's server reports,
// registered against its own *prometheus.Registry rather than the global
// DefaultRegisterer — each server.Server constructs its own Registry, and a
// process (or test binary) that builds more than one must not collide on
// collector names.
type Registry struct {
	reg *prometheus.Registry

	ActiveConnections prometheus.Gauge
	IsPrimary         prometheus.Gauge

	ReplicationRounds   *prometheus.CounterVec
	ReplicationAckMS    prometheus.Histogram
	ReplicationFailures *prometheus.CounterVec

	ElectionEvents *prometheus.CounterVec
	HeartbeatSent  prometheus.Counter
	HeartbeatMissed prometheus.Counter

	PumpDelivered prometheus.Counter
	PumpRequeued  prometheus.Counter
}

// NewRegistry constructs a fresh Prometheus registry and every collector
// gochat reports, registered against it.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	fac := promauto.With(reg)
	return &Registry{
		reg: reg,
		ActiveConnections: fac.NewGauge(prometheus.GaugeOpts{
			Name: "gochat_active_connections",
			Help: "Number of currently open client and peer connections",
		}),
		IsPrimary: fac.NewGauge(prometheus.GaugeOpts{
			Name: "gochat_is_primary",
			Help: "1 if this replica currently believes it is primary, else 0",
		}),
		ReplicationRounds: fac.NewCounterVec(prometheus.CounterOpts{
			Name: "gochat_replication_rounds_total",
			Help: "Replication broadcast rounds, by store kind",
		}, []string{"store"}),
		ReplicationAckMS: fac.NewHistogram(prometheus.HistogramOpts{
			Name:    "gochat_replication_ack_milliseconds",
			Help:    "Time to collect all backup acks for one replication round",
			Buckets: prometheus.DefBuckets,
		}),
		ReplicationFailures: fac.NewCounterVec(prometheus.CounterOpts{
			Name: "gochat_replication_failures_total",
			Help: "Backups that failed to ack a replication round, counted once per backup per round, by store kind",
		}, []string{"store"}),
		ElectionEvents: fac.NewCounterVec(prometheus.CounterOpts{
			Name: "gochat_election_events_total",
			Help: "Election transitions, by kind (became_primary, peer_lost)",
		}, []string{"kind"}),
		HeartbeatSent: fac.NewCounter(prometheus.CounterOpts{
			Name: "gochat_heartbeat_sent_total",
			Help: "Heartbeats sent to the primary",
		}),
		HeartbeatMissed: fac.NewCounter(prometheus.CounterOpts{
			Name: "gochat_heartbeat_missed_total",
			Help: "Heartbeats that went unacknowledged",
		}),
		PumpDelivered: fac.NewCounter(prometheus.CounterOpts{
			Name: "gochat_pump_delivered_total",
			Help: "Undelivered messages successfully delivered by the pump",
		}),
		PumpRequeued: fac.NewCounter(prometheus.CounterOpts{
			Name: "gochat_pump_requeued_total",
			Help: "Undelivered messages requeued after a failed delivery attempt",
		}),
	}
}

// Handler returns the HTTP handler serving /metrics for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

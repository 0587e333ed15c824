package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "smc",
		Subsystem: "gateway",
		Name:      "connections_open",
		Help:      "Websocket connections currently open on this node",
	})

	identitiesOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "smc",
		Subsystem: "gateway",
		Name:      "identities_authenticated",
		Help:      "Connections on this node that carry an identity",
	})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smc",
		Subsystem: "gateway",
		Name:      "events_total",
		Help:      "Inbound events by name and ack status",
	}, []string{"event", "status"})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smc",
		Subsystem: "gateway",
		Name:      "dropped_total",
		Help:      "Outbound frames that were not delivered",
	}, []string{"reason"})

	busTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smc",
		Subsystem: "gateway",
		Name:      "bus_envelopes_total",
		Help:      "Fan-out envelopes by direction",
	}, []string{"direction"})
)

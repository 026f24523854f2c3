// Package metrics exposes the platform's Prometheus instruments.
//
// All metrics use the inkbase_ prefix. Registration happens against the
// default registerer at init; the /metrics endpoint in pkg/api serves
// them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelayMessages counts client frames by wire type.
	RelayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkbase_relay_messages_total",
			Help: "Client frames received by the relay, by message type",
		},
		[]string{"type"},
	)

	// RelayRejectedMessages counts broadcasts dropped before fan-out.
	RelayRejectedMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkbase_relay_rejected_messages_total",
			Help: "Broadcasts dropped before fan-out, by reason",
		},
		[]string{"reason"}, // "signature", "blocked"
	)

	// RelayRoomJoins counts successful room joins.
	RelayRoomJoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inkbase_relay_room_joins_total",
			Help: "Successful room joins",
		},
	)

	// RelayConnections tracks currently registered connections.
	RelayConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inkbase_relay_connections",
			Help: "Currently registered relay connections",
		},
	)

	// DocOperations counts composite document operations by name and
	// outcome.
	DocOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkbase_doc_operations_total",
			Help: "Composite document operations, by operation and status",
		},
		[]string{"operation", "status"},
	)

	// DocOperationDuration tracks composite operation latency.
	DocOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inkbase_doc_operation_duration_seconds",
			Help:    "Composite document operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// HTTPRequests counts HTTP requests by route and status class.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkbase_http_requests_total",
			Help: "HTTP requests, by route and status class",
		},
		[]string{"route", "status"},
	)
)

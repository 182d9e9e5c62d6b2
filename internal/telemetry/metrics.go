// Package telemetry implements Prometheus metrics about the daemon
// process itself (sessions, windows, parse errors, broadcast health) —
// distinct from the traffic QoS metrics internal/metrics computes about
// captured packets, which travel over the websocket hub instead.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsParsedTotal counts successfully parsed capture-tool lines.
	PacketsParsedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netprobe_packets_parsed_total",
		Help: "Total number of capture lines parsed into packets",
	})

	// ParseErrorsTotal counts unparseable capture-tool lines, dropped
	// silently from the data path per spec.md §4.1.
	ParseErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netprobe_parse_errors_total",
		Help: "Total number of capture lines that failed to parse",
	})

	// WindowsClosedTotal counts completed capture windows.
	WindowsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netprobe_windows_closed_total",
		Help: "Total number of capture windows published to the metrics engine",
	})

	// BroadcastFailuresTotal counts subscriber sends that failed and
	// triggered deregistration.
	BroadcastFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netprobe_broadcast_failures_total",
		Help: "Total number of subscriber sends that failed",
	})

	// EnrichmentRecordsTotal counts geolocation/rDNS records emitted.
	EnrichmentRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netprobe_enrichment_records_total",
		Help: "Total number of enrichment records emitted by the geolocation worker",
	})

	// SessionState tracks the coordinator's current FSM state as a gauge.
	SessionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "netprobe_session_state",
			Help: "Current session coordinator state (1=active for the labeled state, 0 otherwise)",
		},
		[]string{"state"},
	)

	// SubscriberCount tracks the number of connected dashboard clients.
	SubscriberCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netprobe_subscriber_count",
		Help: "Current number of connected dashboard subscribers",
	})
)

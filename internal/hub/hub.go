// Package hub implements the Distribution Hub: the websocket subscriber
// registry and command protocol from spec.md §4.6/§6.3.
package hub

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"firestige.xyz/netprobe/internal/geo"
	"firestige.xyz/netprobe/internal/metrics"
	"firestige.xyz/netprobe/internal/report"
	"firestige.xyz/netprobe/internal/session"
	"firestige.xyz/netprobe/internal/telemetry"
)

// resetPollInterval is how often a connecting subscriber re-checks an
// in-progress reset before it is registered, spec.md §4.6.
const resetPollInterval = 50 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub owns the subscriber set and dispatches their commands to the
// Session Coordinator.
type Hub struct {
	coordinator *session.Coordinator

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// New creates a Hub bound to coordinator.
func New(coordinator *session.Coordinator) *Hub {
	return &Hub{coordinator: coordinator, subs: make(map[*subscriber]struct{})}
}

// ServeHTTP upgrades the connection and starts the subscriber's pumps,
// after waiting out any in-progress reset per spec.md §4.6.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for h.coordinator.Resetting() {
		time.Sleep(resetPollInterval)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("hub: upgrade failed", "error", err)
		return
	}

	sub := newSubscriber(h, conn)
	h.register(sub)

	go sub.writePump()
	sub.trySend(h.initialStateMessage())
	sub.readPump()
}

func (h *Hub) register(s *subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	count := len(h.subs)
	h.mu.Unlock()
	telemetry.SubscriberCount.Set(float64(count))
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s]
	delete(h.subs, s)
	count := len(h.subs)
	h.mu.Unlock()
	if !ok {
		return
	}
	close(s.send)
	telemetry.SubscriberCount.Set(float64(count))

	if count == 0 && h.coordinator.State() == session.StateRunning {
		h.coordinator.LastSubscriberLeft()
	}
}

func (h *Hub) initialStateMessage() serverMessage {
	snap := h.coordinator.LastSnapshot()
	msg := snapshotMessage("initial_state", snap, nil)

	ifaces, err := h.coordinator.ListInterfaces()
	if err == nil {
		msg.Interfaces = interfaceDTOs(ifaces)
	}
	return msg
}

// handleCommand dispatches one inbound client command, spec.md §4.6.
func (h *Hub) handleCommand(s *subscriber, cmd clientCommand) {
	switch cmd.Command {
	case "get_interfaces":
		h.handleGetInterfaces(s)
	case "start_capture":
		h.handleStartCapture(s, cmd)
	case "stop_capture":
		h.handleStopCapture(s)
	case "get_status":
		h.handleGetStatus(s)
	default:
		s.trySend(serverMessage{Type: "error", Error: "unknown command: " + cmd.Command})
	}
}

func (h *Hub) handleGetInterfaces(s *subscriber) {
	ifaces, err := h.coordinator.ListInterfaces()
	if err != nil {
		s.trySend(serverMessage{Type: "command_response", Command: "get_interfaces", Success: false, Message: err.Error()})
		return
	}
	s.trySend(serverMessage{Type: "interfaces_response", Interfaces: interfaceDTOs(ifaces)})
}

func (h *Hub) handleStartCapture(s *subscriber, cmd clientCommand) {
	ok, msg := h.coordinator.Start(cmd.Interface)
	s.trySend(serverMessage{Type: "command_response", Command: "start_capture", Success: ok, Message: msg})
}

func (h *Hub) handleStopCapture(s *subscriber) {
	ok, msg := h.coordinator.Stop()
	if !ok {
		s.trySend(serverMessage{Type: "command_response", Command: "stop_capture", Success: false, Message: msg})
	}
	// Success path: BroadcastStopAck/BroadcastStopResult carry the two
	// responses to every subscriber, ordering guaranteed by the
	// Coordinator per spec.md §5.
}

func (h *Hub) handleGetStatus(s *subscriber) {
	snap := h.coordinator.LastSnapshot()
	var status *overallMetricsDTO
	if snap != nil {
		status = overallMetricsDTOFrom(snap.Overall)
	} else {
		status = overallMetricsDTOFrom(metrics.OverallMetrics{SessionStatus: h.coordinator.State()})
	}
	s.trySend(serverMessage{Type: "status_response", Status: status})
}

// BroadcastUpdate fans out one window's snapshot plus any queued
// enrichment records to every subscriber, spec.md §4.6's broadcast cadence.
func (h *Hub) BroadcastUpdate(snap *metrics.Snapshot, newGeo []geo.Record) {
	msg := snapshotMessage("update", snap, newGeo)
	h.broadcast(msg)
}

// BroadcastStopAck sends the immediate stop acknowledgement, spec.md §4.6.
func (h *Hub) BroadcastStopAck() {
	h.broadcast(serverMessage{Type: "stop_capture_ack", Success: true, Message: "stopping"})
}

// BroadcastStopResult sends the terminal stop_capture response carrying
// the generated report, spec.md §4.6/§4.9.
func (h *Hub) BroadcastStopResult(doc report.Document) {
	h.broadcast(serverMessage{
		Type:    "command_response",
		Command: "stop_capture",
		Success: true,
		Summary: doc.Summary,
	})
}

// broadcast enqueues msg on every subscriber; a full send buffer marks
// that subscriber for removal without blocking the others, spec.md §4.6's
// send policy.
func (h *Hub) broadcast(msg serverMessage) {
	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if !s.trySend(msg) {
			telemetry.BroadcastFailuresTotal.Inc()
			h.unregister(s)
		}
	}
}

var _ session.Broadcaster = (*Hub)(nil)

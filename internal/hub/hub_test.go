package hub

import (
	"net/netip"
	"testing"
	"time"

	"firestige.xyz/netprobe/internal/config"
	"firestige.xyz/netprobe/internal/geo"
	"firestige.xyz/netprobe/internal/metrics"
	"firestige.xyz/netprobe/internal/report"
	"firestige.xyz/netprobe/internal/session"
)

type fakeOwn struct{}

func (fakeOwn) Contains(netip.Addr) bool { return false }

// noopBroadcaster satisfies session.Broadcaster without a real Hub, so
// tests can construct a Coordinator in isolation.
type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastUpdate(*metrics.Snapshot, []geo.Record) {}
func (noopBroadcaster) BroadcastStopAck()                               {}
func (noopBroadcaster) BroadcastStopResult(report.Document)             {}

func newTestHub() *Hub {
	cfg := config.CaptureConfig{ToolPath: "tshark", WindowDuration: time.Second, FieldSeparator: "|"}
	rep := config.ReportConfig{RequestTimeout: time.Second}
	coord := session.New(cfg, rep, fakeOwn{}, noopBroadcaster{}, nil)
	return New(coord)
}

// newTestSubscriber builds a subscriber with no backing websocket
// connection; register/unregister/broadcast/handleCommand never
// dereference conn, only the send channel and hub bookkeeping.
func newTestSubscriber(h *Hub) *subscriber {
	return &subscriber{send: make(chan serverMessage, sendBuffer), hub: h}
}

func TestRegisterAddsSubscriberAndUpdatesCount(t *testing.T) {
	h := newTestHub()
	s := newTestSubscriber(h)
	h.register(s)

	h.mu.RLock()
	_, ok := h.subs[s]
	count := len(h.subs)
	h.mu.RUnlock()
	if !ok || count != 1 {
		t.Errorf("subs = %v (len %d), want s registered, len 1", h.subs, count)
	}
}

func TestUnregisterRemovesSubscriberAndClosesSend(t *testing.T) {
	h := newTestHub()
	s := newTestSubscriber(h)
	h.register(s)
	h.unregister(s)

	h.mu.RLock()
	_, ok := h.subs[s]
	h.mu.RUnlock()
	if ok {
		t.Error("expected subscriber to be removed from subs")
	}
	if _, open := <-s.send; open {
		t.Error("expected send channel to be closed")
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := newTestHub()
	s := newTestSubscriber(h)
	h.register(s)
	h.unregister(s)
	h.unregister(s) // must not double-close s.send
}

func TestBroadcastDeliversToAllRegisteredSubscribers(t *testing.T) {
	h := newTestHub()
	a, b := newTestSubscriber(h), newTestSubscriber(h)
	h.register(a)
	h.register(b)

	h.broadcast(serverMessage{Type: "update"})

	for name, s := range map[string]*subscriber{"a": a, "b": b} {
		select {
		case msg := <-s.send:
			if msg.Type != "update" {
				t.Errorf("%s received Type = %q, want update", name, msg.Type)
			}
		default:
			t.Errorf("%s did not receive the broadcast message", name)
		}
	}
}

func TestBroadcastDropsSubscriberWithFullSendBuffer(t *testing.T) {
	h := newTestHub()
	s := &subscriber{send: make(chan serverMessage, 1), hub: h}
	h.register(s)
	s.send <- serverMessage{Type: "filler"} // fill the buffer

	h.broadcast(serverMessage{Type: "update"})

	h.mu.RLock()
	_, stillRegistered := h.subs[s]
	h.mu.RUnlock()
	if stillRegistered {
		t.Error("expected an unresponsive subscriber to be unregistered")
	}
}

func TestHandleCommandUnknownCommandRepliesWithError(t *testing.T) {
	h := newTestHub()
	s := newTestSubscriber(h)
	h.handleCommand(s, clientCommand{Command: "do_a_barrel_roll"})

	msg := <-s.send
	if msg.Type != "error" {
		t.Errorf("Type = %q, want error", msg.Type)
	}
}

func TestHandleCommandGetStatusRepliesWithCurrentState(t *testing.T) {
	h := newTestHub()
	s := newTestSubscriber(h)
	h.handleCommand(s, clientCommand{Command: "get_status"})

	msg := <-s.send
	if msg.Type != "status_response" {
		t.Errorf("Type = %q, want status_response", msg.Type)
	}
	if msg.Status == nil {
		t.Fatal("expected a non-nil Status block")
	}
	if msg.Status.SessionStatus != session.StateIdle {
		t.Errorf("Status.SessionStatus = %q, want %q", msg.Status.SessionStatus, session.StateIdle)
	}
}

func TestHandleCommandStopCaptureWhenIdleRepliesWithFailure(t *testing.T) {
	h := newTestHub()
	s := newTestSubscriber(h)
	h.handleCommand(s, clientCommand{Command: "stop_capture"})

	msg := <-s.send
	if msg.Success {
		t.Error("expected stop_capture to fail when no session is running")
	}
}

package session

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"

	"firestige.xyz/netprobe/internal/config"
	"firestige.xyz/netprobe/internal/geo"
	"firestige.xyz/netprobe/internal/metrics"
	"firestige.xyz/netprobe/internal/model"
	"firestige.xyz/netprobe/internal/report"
)

type fakeOwn struct{}

func (fakeOwn) Contains(netip.Addr) bool { return false }

type ownSet map[netip.Addr]struct{}

func (s ownSet) Contains(a netip.Addr) bool {
	_, ok := s[a]
	return ok
}

func ownSetOf(addrs ...string) ownSet {
	s := make(ownSet, len(addrs))
	for _, a := range addrs {
		s[netip.MustParseAddr(a)] = struct{}{}
	}
	return s
}

type addrPair struct {
	src, dst string
}

func windowWithAddrPairs(t *testing.T, pairs []addrPair) *model.Window {
	t.Helper()
	w := model.NewWindow()
	key := model.FlowKey{Category: "tcp", Discriminator: "1"}
	for _, p := range pairs {
		w.Append(key, &model.Packet{
			Src: netip.MustParseAddr(p.src),
			Dst: netip.MustParseAddr(p.dst),
		})
	}
	return w
}

// fakeBroadcaster records calls and can block the test until the terminal
// stop_capture result has been broadcast.
type fakeBroadcaster struct {
	mu        sync.Mutex
	updates   int
	stopAcks  int
	stopDocs  []report.Document
	resultCh  chan struct{}
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{resultCh: make(chan struct{}, 1)}
}

func (b *fakeBroadcaster) BroadcastUpdate(*metrics.Snapshot, []geo.Record) {
	b.mu.Lock()
	b.updates++
	b.mu.Unlock()
}

func (b *fakeBroadcaster) BroadcastStopAck() {
	b.mu.Lock()
	b.stopAcks++
	b.mu.Unlock()
}

func (b *fakeBroadcaster) BroadcastStopResult(doc report.Document) {
	b.mu.Lock()
	b.stopDocs = append(b.stopDocs, doc)
	b.mu.Unlock()
	b.resultCh <- struct{}{}
}

func testConfigs() (config.CaptureConfig, config.ReportConfig) {
	return config.CaptureConfig{
			ToolPath:       "tshark",
			WindowDuration: 100 * time.Millisecond,
			FieldSeparator: "|",
		}, config.ReportConfig{
			RequestTimeout: time.Second,
		}
}

// putRunning forces the coordinator directly into Running with an
// already-finished window loop, bypassing the real capture-tool process
// so the FSM's Stopping/Reporting/Idle path can be exercised deterministically.
func putRunning(c *Coordinator) {
	c.mu.Lock()
	_ = c.machine.Event(context.Background(), EventStart)
	c.sessionStart = time.Now()
	c.windowCancel = func() {}
	c.windowDone = make(chan struct{})
	close(c.windowDone)
	c.mu.Unlock()
	c.markState(StateRunning)
}

func TestNewCoordinatorStartsIdle(t *testing.T) {
	captureCfg, rep := testConfigs()
	c := New(captureCfg, rep, fakeOwn{}, newFakeBroadcaster(), nil)
	if c.State() != StateIdle {
		t.Errorf("State() = %q, want %q", c.State(), StateIdle)
	}
}

func TestStopWhenNotRunningReturnsError(t *testing.T) {
	captureCfg, rep := testConfigs()
	c := New(captureCfg, rep, fakeOwn{}, newFakeBroadcaster(), nil)
	ok, msg := c.Stop()
	if ok {
		t.Fatal("expected Stop to fail when Idle")
	}
	if msg == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestStopDrivesFullTransitionToIdleAndBroadcastsAckThenResult(t *testing.T) {
	captureCfg, rep := testConfigs()
	bc := newFakeBroadcaster()
	c := New(captureCfg, rep, fakeOwn{}, bc, nil)
	putRunning(c)

	ok, _ := c.Stop()
	if !ok {
		t.Fatal("expected Stop to succeed from Running")
	}
	if c.State() != StateStopping {
		t.Errorf("State() immediately after Stop = %q, want %q", c.State(), StateStopping)
	}

	select {
	case <-bc.resultCh:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for BroadcastStopResult")
	}

	if c.State() != StateIdle {
		t.Errorf("State() after shutdown completes = %q, want %q", c.State(), StateIdle)
	}
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if bc.stopAcks != 1 {
		t.Errorf("stopAcks = %d, want 1", bc.stopAcks)
	}
	if len(bc.stopDocs) != 1 {
		t.Fatalf("stopDocs = %d, want 1", len(bc.stopDocs))
	}
	if !bc.stopDocs[0].Fallback {
		t.Error("expected a fallback report document with no generator configured")
	}
}

func TestStartFailsWhenAlreadyRunning(t *testing.T) {
	captureCfg, rep := testConfigs()
	c := New(captureCfg, rep, fakeOwn{}, newFakeBroadcaster(), nil)
	putRunning(c)

	ok, msg := c.Start("eth0")
	if ok {
		t.Fatal("expected Start to fail when already Running")
	}
	if msg == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestLastSubscriberLeftTriggersStopWithoutAck(t *testing.T) {
	captureCfg, rep := testConfigs()
	bc := newFakeBroadcaster()
	c := New(captureCfg, rep, fakeOwn{}, bc, nil)
	putRunning(c)

	c.LastSubscriberLeft()

	select {
	case <-bc.resultCh:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for BroadcastStopResult")
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()
	if bc.stopAcks != 0 {
		t.Errorf("stopAcks = %d, want 0 (no explicit stop_capture command was issued)", bc.stopAcks)
	}
}

func TestCollectRemoteAddrsExcludesOwnAndInvalid(t *testing.T) {
	own := ownSetOf("10.0.0.1")
	w := windowWithAddrPairs(t, []addrPair{
		{"10.0.0.1", "93.184.216.34"},
		{"93.184.216.34", "10.0.0.1"},
		{"10.0.0.1", "10.0.0.1"},
	})

	addrs := collectRemoteAddrs(w, own)
	if len(addrs) != 1 {
		t.Fatalf("len(addrs) = %d, want 1", len(addrs))
	}
	if addrs[0] != netip.MustParseAddr("93.184.216.34") {
		t.Errorf("addrs[0] = %v, want 93.184.216.34", addrs[0])
	}
}

func TestQueueGeoRecordAppendsToPendingQueue(t *testing.T) {
	captureCfg, rep := testConfigs()
	c := New(captureCfg, rep, fakeOwn{}, newFakeBroadcaster(), nil)
	rec := geo.Record{IP: netip.MustParseAddr("93.184.216.34")}
	c.QueueGeoRecord(rec)

	c.mu.Lock()
	pending := c.pendingGeo
	c.mu.Unlock()
	if len(pending) != 1 {
		t.Fatalf("pendingGeo len = %d, want 1", len(pending))
	}
}

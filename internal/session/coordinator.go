package session

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"firestige.xyz/netprobe/internal/appdetect"
	"firestige.xyz/netprobe/internal/capture"
	"firestige.xyz/netprobe/internal/config"
	"firestige.xyz/netprobe/internal/flow"
	"firestige.xyz/netprobe/internal/geo"
	"firestige.xyz/netprobe/internal/metrics"
	"firestige.xyz/netprobe/internal/model"
	"firestige.xyz/netprobe/internal/netprobe"
	"firestige.xyz/netprobe/internal/report"
	"firestige.xyz/netprobe/internal/telemetry"
	"firestige.xyz/netprobe/internal/window"
)

// graceBeforeReport is the pause between capture-stop confirmation and
// report build, spec.md §5.
const graceBeforeReport = 500 * time.Millisecond

// Broadcaster is the Distribution Hub's inbound interface from the
// Coordinator. Implemented by internal/hub.Hub.
type Broadcaster interface {
	BroadcastUpdate(snapshot *metrics.Snapshot, newGeo []geo.Record)
	BroadcastStopAck()
	BroadcastStopResult(doc report.Document)
}

// Coordinator is the Session Coordinator: spec.md §4.5's state machine
// plus the session-scoped state it owns and resets as a unit.
type Coordinator struct {
	cfg         config.CaptureConfig
	own         netaddrSet
	broadcaster Broadcaster
	reportCfg   config.ReportConfig

	src       *capture.Source
	detector  *appdetect.Detector
	engine    *metrics.Engine
	geoWorker *geo.Worker
	builder   *report.Builder

	mu              sync.Mutex
	machine         *fsm.FSM
	isResetting     bool
	isGeneratingSum bool

	windowCancel    context.CancelFunc
	windowDone      chan struct{}
	sessionStart    time.Time
	lastSnapshot    *metrics.Snapshot
	pendingGeo      []geo.Record
	lastRemoteAddrs []netip.Addr
}

// netaddrSet is the subset of *netaddr.Set the coordinator and its
// subordinates need; kept as a narrow interface to avoid a hard import
// cycle between session and netaddr callers that construct it.
type netaddrSet interface {
	Contains(addr netip.Addr) bool
}

// New creates an Idle Coordinator.
func New(cfg config.CaptureConfig, reportCfg config.ReportConfig, own netaddrSet, broadcaster Broadcaster, generator report.Generator) *Coordinator {
	c := &Coordinator{
		cfg:         cfg,
		own:         &ownAdapter{own},
		broadcaster: broadcaster,
		reportCfg:   reportCfg,
		src:         capture.New(cfg),
		detector:    appdetect.New(),
		builder:     report.NewBuilder(generator),
	}
	c.engine = metrics.New(c.own, cfg.WindowDuration)
	c.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventStart, Src: []string{StateIdle}, Dst: StateRunning},
			{Name: EventStop, Src: []string{StateRunning}, Dst: StateStopping},
			{Name: EventLastLeft, Src: []string{StateRunning}, Dst: StateStopping},
			{Name: EventCaptureDown, Src: []string{StateStopping}, Dst: StateReporting},
			{Name: EventReportDone, Src: []string{StateReporting}, Dst: StateIdle},
		},
		nil,
	)
	c.markState(StateIdle)
	return c
}

type ownAdapter struct{ s netaddrSet }

func (o *ownAdapter) Contains(addr netip.Addr) bool {
	if o.s == nil {
		return false
	}
	return o.s.Contains(addr)
}

// State returns the coordinator's current FSM state.
func (c *Coordinator) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current()
}

// LastSnapshot returns the most recently broadcast metrics snapshot, or
// nil before the first window closes.
func (c *Coordinator) LastSnapshot() *metrics.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSnapshot
}

// Start attempts the Idle→Running transition, spec.md §4.5.
func (c *Coordinator) Start(iface string) (bool, string) {
	c.mu.Lock()
	if c.isResetting || c.isGeneratingSum {
		c.mu.Unlock()
		return false, netprobe.ErrBusy.Error()
	}
	if c.machine.Current() != StateIdle {
		c.mu.Unlock()
		return false, netprobe.ErrAlreadyRunning.Error()
	}
	c.mu.Unlock()

	ok, msg := c.src.Start(iface)
	if !ok {
		return false, msg
	}

	c.mu.Lock()
	_ = c.machine.Event(context.Background(), EventStart)
	c.sessionStart = time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	c.windowCancel = cancel
	c.windowDone = make(chan struct{})
	c.mu.Unlock()
	c.markState(StateRunning)

	go c.runWindowLoop(ctx)
	return true, "capture started"
}

// Stop attempts the Running→Stopping transition and returns immediately
// with an ack; the remainder of the shutdown proceeds in the background,
// spec.md §4.6's stop_capture semantics.
func (c *Coordinator) Stop() (bool, string) {
	c.mu.Lock()
	if c.machine.Current() != StateRunning {
		c.mu.Unlock()
		return false, netprobe.ErrNotRunning.Error()
	}
	_ = c.machine.Event(context.Background(), EventStop)
	cancel := c.windowCancel
	done := c.windowDone
	c.mu.Unlock()
	c.markState(StateStopping)

	if c.broadcaster != nil {
		c.broadcaster.BroadcastStopAck()
	}

	go c.finishStop(cancel, done)
	return true, "stopping"
}

// LastSubscriberLeft triggers the same shutdown path as an explicit stop
// command, spec.md §4.6.
func (c *Coordinator) LastSubscriberLeft() {
	c.mu.Lock()
	if c.machine.Current() != StateRunning {
		c.mu.Unlock()
		return
	}
	_ = c.machine.Event(context.Background(), EventLastLeft)
	cancel := c.windowCancel
	done := c.windowDone
	c.mu.Unlock()
	c.markState(StateStopping)

	go c.finishStop(cancel, done)
}

// markState updates the session-state gauge, spec.md §5's observability
// surface over the coordinator's own FSM.
func (c *Coordinator) markState(state string) {
	for _, s := range []string{StateIdle, StateRunning, StateStopping, StateReporting} {
		v := 0.0
		if s == state {
			v = 1
		}
		telemetry.SessionState.WithLabelValues(s).Set(v)
	}
}

func (c *Coordinator) finishStop(cancel context.CancelFunc, done chan struct{}) {
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	_ = c.src.Stop()

	c.mu.Lock()
	_ = c.machine.Event(context.Background(), EventCaptureDown)
	c.isGeneratingSum = true
	duration := time.Since(c.sessionStart)
	c.mu.Unlock()
	c.markState(StateReporting)

	time.Sleep(graceBeforeReport)

	totals := c.engine.Totals()
	payload := report.Build(duration, totals)
	doc := c.builder.BuildWithTimeout(payload, c.reportCfg.RequestTimeout)

	if c.broadcaster != nil {
		c.broadcaster.BroadcastStopResult(doc)
	}

	c.reset()
}

func (c *Coordinator) reset() {
	c.mu.Lock()
	c.isResetting = true
	c.mu.Unlock()

	c.engine.Reset()
	c.detector.Reset()
	if c.geoWorker != nil {
		c.geoWorker.Reset()
	}

	c.mu.Lock()
	_ = c.machine.Event(context.Background(), EventReportDone)
	c.isGeneratingSum = false
	c.isResetting = false
	c.lastSnapshot = nil
	c.pendingGeo = nil
	c.mu.Unlock()
	c.markState(StateIdle)
}

// runWindowLoop drives the Window Batcher + Metrics Engine + broadcast
// pipeline, spec.md §4.3/§4.4. It exits when the batcher reports a
// cancelled (abandoned) window.
func (c *Coordinator) runWindowLoop(ctx context.Context) {
	defer close(c.windowDone)

	classifier := flow.New(c.detector)
	batcher := window.New(c.src, classifier, c.cfg.FieldSeparator, c.cfg.WindowDuration, c.own)

	for {
		w := batcher.Run(ctx)
		if w == nil {
			return
		}

		snap := c.engine.Compute(w, c.State())
		telemetry.WindowsClosedTotal.Inc()

		c.mu.Lock()
		c.lastSnapshot = snap
		c.lastRemoteAddrs = collectRemoteAddrs(w, c.own)
		pending := c.pendingGeo
		c.pendingGeo = nil
		c.mu.Unlock()

		if c.broadcaster != nil {
			c.broadcaster.BroadcastUpdate(snap, pending)
		}

		if c.State() != StateRunning {
			return
		}
	}
}

// QueueGeoRecord appends an enrichment record for inclusion in the next
// broadcast, spec.md §4.7.
func (c *Coordinator) QueueGeoRecord(r geo.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingGeo = append(c.pendingGeo, r)
}

// RemoteAddrs returns the distinct non-own addresses observed in the most
// recently closed window, the candidate set for the Enrichment Worker,
// spec.md §4.7.
func (c *Coordinator) RemoteAddrs() []netip.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRemoteAddrs
}

// collectRemoteAddrs gathers the distinct non-own addresses that appeared
// in w, in no particular order.
func collectRemoteAddrs(w *model.Window, own netaddrSet) []netip.Addr {
	seen := make(map[netip.Addr]struct{})
	var out []netip.Addr
	for _, pkts := range w.Streams {
		for _, pkt := range pkts {
			for _, addr := range [2]netip.Addr{pkt.Src, pkt.Dst} {
				if !addr.IsValid() || own.Contains(addr) {
					continue
				}
				if _, ok := seen[addr]; ok {
					continue
				}
				seen[addr] = struct{}{}
				out = append(out, addr)
			}
		}
	}
	return out
}

// AttachGeoWorker wires the Enrichment Worker so Reset can clear its
// queried-address set too.
func (c *Coordinator) AttachGeoWorker(w *geo.Worker) {
	c.geoWorker = w
}

// Detector exposes the App Detector for the Hub's status queries.
func (c *Coordinator) Detector() *appdetect.Detector { return c.detector }

// Engine exposes the Metrics Engine for the Hub's status queries.
func (c *Coordinator) Engine() *metrics.Engine { return c.engine }

// CaptureSource exposes the Capture Source for interface enumeration.
func (c *Coordinator) CaptureSource() *capture.Source { return c.src }

// ListInterfaces enumerates capture interfaces via the configured tool,
// spec.md §6.2.
func (c *Coordinator) ListInterfaces() ([]capture.Interface, error) {
	return capture.ListInterfaces(c.cfg.ToolPath)
}

// Resetting reports whether a reset is currently in progress, spec.md §5's
// `is_resetting` gate — the Hub polls this before admitting new subscribers.
func (c *Coordinator) Resetting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isResetting
}

// Package window runs the fixed-duration capture window loop: read lines
// from the capture source, classify and append packets in-line, and
// publish the closed window to the Metrics Engine, per spec.md §4.3.
package window

import (
	"context"
	"net/netip"
	"time"

	"firestige.xyz/netprobe/internal/capture"
	"firestige.xyz/netprobe/internal/flow"
	"firestige.xyz/netprobe/internal/model"
	"firestige.xyz/netprobe/internal/telemetry"
)

// ReadDeadline is the per-readLine timeout the batcher polls with, spec.md
// §5: "readLine: 1s (timeout is normal)".
const ReadDeadline = time.Second

// Source is the subset of capture.Source the batcher depends on.
type Source interface {
	ReadLine(deadline time.Duration) (string, error)
}

// Batcher runs one capture window per Run iteration.
type Batcher struct {
	src        Source
	classifier *flow.Classifier
	sep        string
	duration   time.Duration
	ownAddrs   OwnAddressChecker
}

// OwnAddressChecker reports whether an address belongs to this host, used
// to pick the remote side of a packet for App Detector classification.
type OwnAddressChecker interface {
	Contains(addr netip.Addr) bool
}

// New creates a Batcher. duration is D, the configured window length.
func New(src Source, classifier *flow.Classifier, sep string, duration time.Duration, own OwnAddressChecker) *Batcher {
	return &Batcher{src: src, classifier: classifier, sep: sep, duration: duration, ownAddrs: own}
}

// Run executes one window: reads lines until D elapses or the source
// reports EOF, classifying and appending packets as they arrive. It
// returns the closed window, or nil once ctx is cancelled, even if packets
// had already accumulated (the "session left Running" cancellation case
// from spec.md §4.3 — the window is abandoned, not published).
func (b *Batcher) Run(ctx context.Context) *model.Window {
	w := model.NewWindow()
	deadline := time.Now().Add(b.duration)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		remaining := time.Until(deadline)
		readTimeout := ReadDeadline
		if remaining < readTimeout {
			readTimeout = remaining
		}
		if readTimeout <= 0 {
			break
		}

		line, err := b.src.ReadLine(readTimeout)
		switch err {
		case nil:
			pkt, ok := capture.ParseLine(line, b.sep)
			if !ok {
				telemetry.ParseErrorsTotal.Inc()
				continue
			}
			telemetry.PacketsParsedTotal.Inc()
			if pkt.Arrival.IsZero() {
				pkt.Arrival = time.Now()
			}
			if w.Start.IsZero() {
				w.Start = pkt.Arrival
			}
			w.End = pkt.Arrival

			key := b.classifier.Classify(pkt, b.remoteOf(pkt))
			w.Append(key, pkt)
		case capture.ErrTimeout:
			continue
		default: // io.EOF or other terminal error
			return w
		}
	}
	return w
}

func (b *Batcher) remoteOf(pkt *model.Packet) netip.Addr {
	if b.ownAddrs == nil {
		return pkt.Dst
	}
	if pkt.Src.IsValid() && !b.ownAddrs.Contains(pkt.Src) {
		return pkt.Src
	}
	return pkt.Dst
}

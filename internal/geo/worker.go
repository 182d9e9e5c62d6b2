package geo

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"time"

	"firestige.xyz/netprobe/internal/appdetect"
	"firestige.xyz/netprobe/internal/netaddr"
)

// tickInterval is the worker's wake cadence, spec.md §4.7.
const tickInterval = 2 * time.Second

// rdnsTimeout bounds the reverse DNS lookup, spec.md §5.
const rdnsTimeout = 1500 * time.Millisecond

// OwnAddressChecker reports whether an address belongs to this host.
type OwnAddressChecker interface {
	Contains(addr netip.Addr) bool
}

// Worker is the Enrichment Worker. It owns the queried-address set for
// one session's lifetime; Reset clears it for the next session.
type Worker struct {
	client   *Client
	resolver *net.Resolver

	mu      sync.Mutex
	queried map[netip.Addr]struct{}
}

// NewWorker creates a Worker using client for external geolocation calls.
func NewWorker(client *Client) *Worker {
	return &Worker{
		client:   client,
		resolver: net.DefaultResolver,
		queried:  make(map[netip.Addr]struct{}),
	}
}

// Reset clears the queried-address set, e.g. on session reset.
func (w *Worker) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queried = make(map[netip.Addr]struct{})
}

// Run blocks, waking every tickInterval to scan candidates() for newly
// observed public, non-own addresses and emitting enrichment records via
// emit. active reports whether a session is currently capturing; ticks
// are skipped while it returns false. Returns when ctx is cancelled.
func (w *Worker) Run(ctx context.Context, active func() bool, candidates func() []netip.Addr, own OwnAddressChecker, detector *appdetect.Detector, emit func(Record)) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !active() {
				continue
			}
			w.tick(ctx, candidates(), own, detector, emit)
		}
	}
}

func (w *Worker) tick(ctx context.Context, addrs []netip.Addr, own OwnAddressChecker, detector *appdetect.Detector, emit func(Record)) {
	for _, addr := range addrs {
		if !eligible(addr, own) {
			continue
		}
		if w.alreadyQueried(addr) {
			continue
		}
		w.markQueried(addr)

		record, ok := w.resolve(ctx, addr)
		if !ok {
			continue
		}
		if detector != nil {
			if stats := detector.Snapshot()[addr]; stats.App.App != "" {
				record.App, record.Category = stats.App.App, stats.App.Category
			}
		}
		emit(record)
	}
}

// resolve implements the three-step lookup from spec.md §4.7: rDNS is
// always attempted; the static DB short-circuits the external call; the
// rate-limited API is the last resort.
func (w *Worker) resolve(ctx context.Context, addr netip.Addr) (Record, bool) {
	hostname := w.reverseLookup(ctx, addr)

	if record, ok := lookupStatic(addr); ok {
		record.Hostname = hostname
		return record, true
	}

	record, ok := w.client.Fetch(ctx, addr)
	if !ok {
		return Record{}, false
	}
	record.Hostname = hostname
	return record, true
}

func (w *Worker) reverseLookup(ctx context.Context, addr netip.Addr) string {
	ctx, cancel := context.WithTimeout(ctx, rdnsTimeout)
	defer cancel()

	names, err := w.resolver.LookupAddr(ctx, addr.String())
	if err != nil || len(names) == 0 {
		return ""
	}
	return names[0]
}

func (w *Worker) alreadyQueried(addr netip.Addr) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.queried[addr]
	return ok
}

func (w *Worker) markQueried(addr netip.Addr) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queried[addr] = struct{}{}
}

func eligible(addr netip.Addr, own OwnAddressChecker) bool {
	if !addr.IsValid() {
		return false
	}
	if own != nil && own.Contains(addr) {
		return false
	}
	return netaddr.IsPublic(addr)
}

package appdetect

import (
	"net/netip"
	"strings"
	"sync"

	"golang.org/x/net/idna"

	"firestige.xyz/netprobe/internal/model"
)

// RemoteStats is the per-remote-IP record from spec.md §3: packet count
// plus the best application descriptor observed for that address.
type RemoteStats struct {
	Packets uint64
	App     Descriptor
}

// Detector owns the IP→app cache and per-remote-IP stats. It has a single
// writer (the Flow Classifier, inline with the Metrics Engine path) and
// many readers (Hub serialization), per spec.md §3's ownership note.
type Detector struct {
	mu      sync.RWMutex
	ipCache map[netip.Addr]Descriptor
	remote  map[netip.Addr]*RemoteStats
}

// New creates an empty Detector.
func New() *Detector {
	return &Detector{
		ipCache: make(map[netip.Addr]Descriptor),
		remote:  make(map[netip.Addr]*RemoteStats),
	}
}

// Reset clears both tables. Session-scoped per the Open Question decision
// recorded in DESIGN.md: the cache and per-remote stats are reset with
// the rest of session state.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ipCache = make(map[netip.Addr]Descriptor)
	d.remote = make(map[netip.Addr]*RemoteStats)
}

func normalizeDomain(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	if ascii, err := idna.Lookup.ToASCII(s); err == nil {
		return ascii
	}
	return s
}

func matchDomain(host string) (Descriptor, bool) {
	host = normalizeDomain(host)
	if host == "" {
		return Descriptor{}, false
	}
	for _, p := range domainPatterns {
		if strings.Contains(host, p.substr) {
			return p.desc, true
		}
	}
	return Descriptor{}, false
}

// Classify applies the precedence chain from spec.md §4.8 to one packet
// and records cache/stats updates as a side effect.
func (d *Detector) Classify(pkt *model.Packet, remote netip.Addr) Descriptor {
	if desc, ok := matchDomain(pkt.TLSSNI); ok {
		d.observe(remote, desc)
		return desc
	}
	if desc, ok := matchDomain(pkt.QUICSNI); ok {
		d.observe(remote, desc)
		return desc
	}
	if pkt.DNSQueryName != "" {
		if desc, ok := matchDomain(pkt.DNSQueryName); ok {
			d.cacheAnswers(pkt.DNSAnswers, desc)
			d.observe(remote, desc)
			return desc
		}
	}
	if remote.IsValid() {
		if desc, ok := d.lookupCache(remote); ok {
			d.observe(remote, desc)
			return desc
		}
	}
	if pkt.HasDstPort {
		if desc, ok := portTable[pkt.DstPort]; ok {
			d.observe(remote, desc)
			return desc
		}
	}
	d.observe(remote, Unknown)
	return Unknown
}

func (d *Detector) lookupCache(addr netip.Addr) (Descriptor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	desc, ok := d.ipCache[addr]
	return desc, ok
}

func (d *Detector) cacheAnswers(answers []netip.Addr, desc Descriptor) {
	if len(answers) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range answers {
		d.ipCache[a] = desc
	}
}

// observe records the remote-IP packet count and applies the promotion
// rule: a non-Unknown, non-Web category observation replaces a prior
// Unknown or Web entry, per spec.md §3.
func (d *Detector) observe(remote netip.Addr, desc Descriptor) {
	if !remote.IsValid() {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	cur, ok := d.remote[remote]
	if !ok {
		d.remote[remote] = &RemoteStats{Packets: 1, App: desc}
		return
	}
	cur.Packets++
	if (cur.App.Category == "" || cur.App.Category == Unknown.Category || cur.App.Category == "Web") &&
		desc.Category != Unknown.Category && desc.Category != "Web" && desc.Category != "" {
		cur.App = desc
	}
}

// Snapshot returns a copy of the per-remote-IP stats table.
func (d *Detector) Snapshot() map[netip.Addr]RemoteStats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[netip.Addr]RemoteStats, len(d.remote))
	for k, v := range d.remote {
		out[k] = *v
	}
	return out
}

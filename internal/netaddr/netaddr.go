// Package netaddr discovers the host's own addresses and classifies
// remote addresses as public/private, per spec.md's Glossary ("Own-address
// set", "Public IP") and §4.7's enrichment eligibility rule.
package netaddr

import (
	"fmt"
	"net/netip"

	"github.com/google/gopacket/pcap"
)

// Set is the host's own bound addresses, split by family the way
// spec.md §4.4's direction-attribution rule needs ("determined by which
// own-address set matched").
type Set struct {
	V4 map[netip.Addr]struct{}
	V6 map[netip.Addr]struct{}
}

// Contains reports whether addr is one of this host's own addresses.
func (s *Set) Contains(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	if addr.Is4() {
		_, ok := s.V4[addr]
		return ok
	}
	_, ok := s.V6[addr]
	return ok
}

// MatchesV4 reports whether addr is a known own IPv4 address.
func (s *Set) MatchesV4(addr netip.Addr) bool {
	_, ok := s.V4[addr.Unmap()]
	return ok
}

// MatchesV6 reports whether addr is a known own IPv6 address.
func (s *Set) MatchesV6(addr netip.Addr) bool {
	_, ok := s.V6[addr.Unmap()]
	return ok
}

// Discover enumerates bound addresses across all capture-visible
// interfaces using libpcap's device list, which — unlike net.Interfaces —
// is the same device inventory the capture tool itself will report
// through "-D", keeping interface naming consistent across the daemon.
func Discover() (*Set, error) {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("enumerate capture devices: %w", err)
	}

	set := &Set{V4: make(map[netip.Addr]struct{}), V6: make(map[netip.Addr]struct{})}
	for _, dev := range devices {
		for _, a := range dev.Addresses {
			addr, ok := netip.AddrFromSlice(a.IP)
			if !ok {
				continue
			}
			addr = addr.Unmap()
			if addr.Is4() {
				set.V4[addr] = struct{}{}
			} else {
				set.V6[addr] = struct{}{}
			}
		}
	}
	return set, nil
}

// reservedV4 lists RFC 5735 "special use" IPv4 blocks beyond what
// netip.Addr's own IsPrivate/IsLoopback/IsLinkLocalUnicast/IsMulticast
// already cover (0.0.0.0/8, 192.0.2.0/24 TEST-NET-1, 198.51.100.0/24
// TEST-NET-2, 203.0.113.0/24 TEST-NET-3, 240.0.0.0/4 reserved).
var reservedV4 = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
}

// IsPublic implements spec.md §4.7's eligibility rule: not private, not
// loopback, not link-local, not multicast, not reserved.
func IsPublic(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsMulticast() || addr.IsUnspecified() {
		return false
	}
	if addr.Is4() {
		for _, p := range reservedV4 {
			if p.Contains(addr) {
				return false
			}
		}
	}
	return true
}

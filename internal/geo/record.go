// Package geo implements the Enrichment Worker: it watches for newly
// observed public remote addresses, resolves reverse DNS and
// geolocation, and queues results for the Distribution Hub's next
// broadcast, per spec.md §4.7.
package geo

import "net/netip"

// Record is one emitted enrichment result, spec.md §6.3's
// new_geolocations array.
type Record struct {
	IP        netip.Addr
	Latitude  float64
	Longitude float64
	City      string
	Country   string
	Hostname  string
	App       string
	Category  string
}

package geo

import "net/netip"

type staticEntry struct {
	city, country      string
	latitude, longitude float64
}

// staticDB is a representative port of the original major-public-IP
// geolocation table (original_source/Backend/static_geolocation_db.py),
// short-circuiting the external HTTP call for well-known infrastructure
// addresses, per spec.md §4.7 step 2.
var staticDB = map[string]staticEntry{
	"8.8.8.8":         {"Mountain View", "US", 37.386, -122.084},
	"8.8.4.4":         {"Mountain View", "US", 37.386, -122.084},
	"142.250.185.46":  {"Mountain View", "US", 37.386, -122.084},
	"1.1.1.1":         {"Los Angeles", "US", 34.053, -118.243},
	"1.0.0.1":         {"Los Angeles", "US", 34.053, -118.243},
	"104.16.132.229":  {"Los Angeles", "US", 34.053, -118.243},
	"52.84.42.1":      {"N. Virginia", "US", 38.946, -77.456},
	"52.36.0.0":       {"Oregon", "US", 43.835, -120.554},
	"54.239.28.30":    {"California", "US", 36.778, -119.417},
	"13.77.161.179":   {"Chicago", "US", 41.878, -87.630},
	"40.76.4.15":      {"New York", "US", 40.748, -73.968},
	"31.13.64.1":      {"Dublin", "IE", 53.350, -6.260},
	"157.240.241.35":  {"San Jose", "US", 37.339, -121.895},
	"23.200.0.1":      {"New York", "US", 40.748, -73.968},
	"72.246.0.1":      {"London", "GB", 51.507, -0.128},
	"151.101.1.140":   {"San Francisco", "US", 37.775, -122.419},
	"151.101.129.140": {"London", "GB", 51.507, -0.128},
	"52.89.214.238":   {"Oregon", "US", 43.835, -120.554},
}

// lookupStatic returns the static record for addr, if present.
func lookupStatic(addr netip.Addr) (Record, bool) {
	e, ok := staticDB[addr.String()]
	if !ok {
		return Record{}, false
	}
	return Record{IP: addr, City: e.city, Country: e.country, Latitude: e.latitude, Longitude: e.longitude}, true
}

package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// httpTimeout bounds the ip-api.com call, spec.md §5.
const httpTimeout = 5 * time.Second

// apiResponse mirrors the subset of fields requested in the ip-api.com
// call, spec.md §6.4.
type apiResponse struct {
	Status  string  `json:"status"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Query   string  `json:"query"`
}

// Client fetches geolocation data from the external API, rate-limited to
// the single-client minimum spacing the worker requires. It must never be
// shared with an unrelated task that could block it, per spec.md §9.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewClient creates a Client limited to ≥ minSpacing between calls.
// baseURL is the bare scheme+host (e.g. "http://ip-api.com"); Fetch
// appends the /json/{ip}?fields=... path itself.
func NewClient(baseURL string, minSpacing time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://ip-api.com"
	}
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		limiter:    rate.NewLimiter(rate.Every(minSpacing), 1),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// Fetch queries the geolocation service for addr. A false return means
// the call failed or the address was not found; callers drop the record
// silently and keep the address in the queried-set, per spec.md §4.7.
func (c *Client) Fetch(ctx context.Context, addr netip.Addr) (Record, bool) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Record{}, false
	}

	url := fmt.Sprintf("%s/json/%s?fields=status,lat,lon,city,country,query", c.baseURL, addr.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Record{}, false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Record{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Record{}, false
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Record{}, false
	}
	if body.Status != "success" {
		return Record{}, false
	}

	return Record{
		IP:        addr,
		Latitude:  body.Lat,
		Longitude: body.Lon,
		City:      body.City,
		Country:   body.Country,
	}, true
}

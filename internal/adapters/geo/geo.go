// Package geo resolves device coordinates to a short place label.
// Lookup failure never blocks a compose, it degrades to the Unknown sentinel
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hush/internal/platform/logger"
)

const (
	baseURLDefault = "https://api.bigdatacloud.net"
	defaultTimeout = 5 * time.Second

	// Unknown is the sentinel label for unresolved locations
	Unknown = "Earth"

	// Resolving marks an in-flight lookup on the presentation side and is
	// excluded from aggregation the same way Unknown is
	Resolving = "Locating"
)

// Sentinel reports whether label carries no real place information
func Sentinel(label string) bool {
	return label == "" || label == Unknown || label == Resolving
}

// Options configures the Client
type Options struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a minimal reverse geocoding client
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// NewClient creates a Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("geo"),
	}
}

// reverseResp is the subset of the provider payload we read
type reverseResp struct {
	City                 string `json:"city"`
	Locality             string `json:"locality"`
	PrincipalSubdivision string `json:"principalSubdivision"`
	CountryName          string `json:"countryName"`
}

// Reverse resolves lat/lon to a short label, returning Unknown on any failure
func (c *Client) Reverse(ctx context.Context, lat, lon float64) string {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.6f", lat))
	q.Set("longitude", fmt.Sprintf("%.6f", lon))
	q.Set("localityLanguage", "en")
	u := c.opts.BaseURL + "/data/reverse-geocode-client?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Unknown
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("reverse geocode failed")
		return Unknown
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Msg("reverse geocode non-200")
		return Unknown
	}

	var body reverseResp
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		c.log.Warn().Err(err).Msg("reverse geocode decode failed")
		return Unknown
	}

	for _, cand := range []string{body.City, body.Locality, body.PrincipalSubdivision, body.CountryName} {
		if s := strings.TrimSpace(cand); s != "" {
			return s
		}
	}
	return Unknown
}

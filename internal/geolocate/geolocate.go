// Package geolocate resolves the machine's approximate location from its
// public IP address.
package geolocate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kozaktomas/geoface/internal/config"
	"github.com/kozaktomas/geoface/internal/logging"
)

// ErrUnavailable is returned when no location could be determined.
var ErrUnavailable = errors.New("location unavailable")

const cacheKey = "self"

// Location is a resolved position with a human-readable place name.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Place     string  `json:"place"`
}

// Client queries an ip-api.com compatible endpoint.
type Client struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	cache      *cache.Cache
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a geolocation client. Successful lookups are cached for
// cfg.CacheTTL; a zero TTL disables caching.
func NewClient(cfg config.GeoConfig, opts ...Option) *Client {
	defaults := config.Defaults().Geo
	if cfg.URL == "" {
		cfg.URL = defaults.URL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	c := &Client{
		url:        cfg.URL,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.CacheTTL > 0 {
		c.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDefault(c.logger)
	return c
}

type ipAPIResponse struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Country    string  `json:"country"`
}

// Current returns the location of this machine. Every failure is reported
// as an error wrapping ErrUnavailable.
func (c *Client) Current(ctx context.Context) (*Location, error) {
	if c.cache != nil {
		if cached, found := c.cache.Get(cacheKey); found {
			if loc, ok := cached.(Location); ok {
				c.logger.Debug("geolocation cache hit", "place", loc.Place)
				return &loc, nil
			}
		}
	}

	loc, err := c.lookup(ctx)
	if err != nil {
		c.logger.Warn("geolocation lookup failed", "url", c.url, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if c.cache != nil {
		c.cache.Set(cacheKey, *loc, cache.DefaultExpiration)
	}
	return loc, nil
}

func (c *Client) lookup(ctx context.Context) (*Location, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var r ipAPIResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if r.Status != "success" {
		if r.Message != "" {
			return nil, fmt.Errorf("provider status %q: %s", r.Status, r.Message)
		}
		return nil, fmt.Errorf("provider status %q", r.Status)
	}

	return &Location{
		Latitude:  r.Lat,
		Longitude: r.Lon,
		Place:     placeName(r.City, r.RegionName, r.Country),
	}, nil
}

// placeName joins the non-empty, non-repeated parts with ", ".
func placeName(parts ...string) string {
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || (len(out) > 0 && out[len(out)-1] == p) {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, ", ")
}

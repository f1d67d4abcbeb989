// Package reputation looks up IP risk profiles from AbuseIPDB.
//
// Lookup is fail-open: every failure collapses into a neutral profile whose
// status says why, and is only logged.
package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/sentinel/internal/domain/model"
	"github.com/okian/sentinel/pkg/logger"
	"github.com/okian/sentinel/pkg/metrics"
)

// Provider defaults.
const (
	DefaultURL        = "https://api.abuseipdb.com/api/v2/check"
	DefaultTimeout    = 5 * time.Second
	DefaultMaxAgeDays = 90

	maxBodyBytes = 1 << 20
)

// Looker resolves the reputation of a source address.
type Looker interface {
	Lookup(ctx context.Context, ip string) model.ReputationProfile
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL points the client at another check endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithTimeout bounds a single lookup.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxAgeDays limits the report window the provider considers.
func WithMaxAgeDays(days int) Option {
	return func(c *Client) {
		if days > 0 {
			c.maxAgeDays = days
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client queries the AbuseIPDB v2 check API.
type Client struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	maxAgeDays int
	http       *http.Client
	log        logger.Logger
}

// New creates a client. Without apiKey every lookup returns no_api_key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultURL,
		timeout:    DefaultTimeout,
		maxAgeDays: DefaultMaxAgeDays,
		http:       &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("reputation")
	}
	return c
}

// Enabled reports whether a credential is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type checkResponse struct {
	Data *struct {
		AbuseConfidenceScore *int    `json:"abuseConfidenceScore"`
		IsProxy              *bool   `json:"isProxy"`
		ISP                  *string `json:"isp"`
		CountryCode          *string `json:"countryCode"`
		LastReportedAt       *string `json:"lastReportedAt"`
	} `json:"data"`
}

// Lookup returns the profile for ip. It never fails.
func (c *Client) Lookup(ctx context.Context, ip string) model.ReputationProfile {
	start := time.Now()
	profile := c.lookup(ctx, ip)
	metrics.RecordReputationLookup(string(profile.Status), float64(time.Since(start).Milliseconds()))
	return profile
}

func (c *Client) lookup(ctx context.Context, ip string) model.ReputationProfile {
	if !c.Enabled() {
		return model.NeutralReputation(model.ReputationNoAPIKey)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.check(ctx, ip)
	if err != nil {
		c.log.Warn(ctx, "reputation lookup failed", logger.String("ip", ip), logger.Error(err))
		return model.NeutralReputation(model.ReputationAPIError)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return model.NeutralReputation(model.ReputationNoData)
	}

	var resp checkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.log.Warn(ctx, "reputation response not understood", logger.String("ip", ip), logger.Error(err))
		return model.NeutralReputation(model.ReputationAPIError)
	}
	if resp.Data == nil {
		return model.NeutralReputation(model.ReputationNoData)
	}

	d := resp.Data
	return model.ReputationProfile{
		AbuseConfidenceScore: d.AbuseConfidenceScore,
		IsProxy:              d.IsProxy,
		Country:              d.CountryCode,
		ISP:                  d.ISP,
		LastReportedAt:       d.LastReportedAt,
		Status:               model.ReputationOK,
	}
}

func (c *Client) check(ctx context.Context, ip string) ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("ipAddress", ip)
	q.Set("maxAgeInDays", strconv.Itoa(c.maxAgeDays))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

// Package webhook posts high-risk alerts to the operator's webhook.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/sentinel/internal/domain/model"
)

// Request headers.
const (
	HeaderSignature = "X-Sentinel-Signature"
	HeaderTimestamp = "X-Sentinel-Timestamp"
)

const (
	defaultTimeout = 10 * time.Second
	maskPrefix     = "••••"
	drainLimit     = 64 << 10

	testSource  = "Sentinel Admin Test"
	testMessage = "This is a webhook test from the Sentinel admin dashboard."
)

// Sentinel kinds for dispatch errors.
var (
	ErrNotConfigured = errors.New("webhook url not configured")
	ErrTransport     = errors.New("webhook request failed")
)

// StatusError reports a non-2xx answer from the webhook.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "webhook responded with status " + strconv.Itoa(e.Code)
}

// Retryable reports whether the status may succeed on a later attempt.
func (e *StatusError) Retryable() bool {
	if e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests {
		return true
	}
	return e.Code < 400 || e.Code >= 500
}

// Alert is the body posted for an ANOMALY verdict.
type Alert struct {
	AlertID   string         `json:"alertId"`
	Score     int            `json:"score"`
	Verdict   model.Verdict  `json:"verdict"`
	CreatedAt time.Time      `json:"createdAt"`
	Event     model.RawEvent `json:"event"`
}

// AlertFrom builds the webhook body for msg.
func AlertFrom(msg *model.QueueMessage) Alert {
	return Alert{
		AlertID:   msg.ID,
		Score:     msg.Score,
		Verdict:   msg.Verdict,
		CreatedAt: msg.CreatedAt,
		Event:     msg.Event,
	}
}

// Test is the body posted by the connectivity check.
type Test struct {
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithSecret enables HMAC-SHA256 signing of every body.
func WithSecret(secret string) Option {
	return func(d *Dispatcher) { d.secret = secret }
}

// WithTimeout bounds a single delivery attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.client.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// Dispatcher delivers JSON bodies to one configured URL.
type Dispatcher struct {
	url    string
	secret string
	client *http.Client
	now    func() time.Time
}

// New creates a dispatcher. An empty url yields a disabled dispatcher.
func New(webhookURL string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		url:    strings.TrimSpace(webhookURL),
		client: &http.Client{Timeout: defaultTimeout},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enabled reports whether a destination is configured.
func (d *Dispatcher) Enabled() bool {
	return d.url != ""
}

// MaskedURL returns the destination reduced to its last path segment, or nil
// when none is configured.
func (d *Dispatcher) MaskedURL() *string {
	if !d.Enabled() {
		return nil
	}
	masked := d.masked()
	return &masked
}

func (d *Dispatcher) masked() string {
	u, err := url.Parse(d.url)
	if err != nil {
		return maskPrefix
	}
	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	last := ""
	if len(parts) > 0 {
		last = parts[len(parts)-1]
	}
	return maskPrefix + "/" + last
}

// transportError wraps err as ErrTransport with any destination URL masked.
func (d *Dispatcher) transportError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		err = &url.Error{Op: ue.Op, URL: d.masked(), Err: ue.Err}
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// SendAlert posts the alert body for msg.
func (d *Dispatcher) SendAlert(ctx context.Context, msg *model.QueueMessage) error {
	return d.post(ctx, AlertFrom(msg))
}

// SendTest posts a connectivity check.
func (d *Dispatcher) SendTest(ctx context.Context) error {
	return d.post(ctx, Test{
		Source:    testSource,
		Timestamp: d.now().UTC(),
		Message:   testMessage,
	})
}

func (d *Dispatcher) post(ctx context.Context, body any) error {
	if !d.Enabled() {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return d.transportError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(d.now().Unix(), 10))
	if d.secret != "" {
		req.Header.Set(HeaderSignature, Sign(payload, d.secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return d.transportError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

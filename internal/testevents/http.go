package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with a timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

type submission struct {
	scenario Scenario
	result   string
	verdict  string
}

// submitEvents posts events concurrently and tallies verdicts.
func submitEvents(ctx context.Context, config *Config, events []Event, stats *Stats) {
	log.Printf("📤 Submitting %d events with %d workers...", len(events), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/events"

	var submitted int64
	eventChan := make(chan Event, config.Workers*WorkerChannelMultiplier)
	results := make(chan submission, config.Workers*WorkerChannelMultiplier)

	var wg sync.WaitGroup
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range eventChan {
				res, verdict := submitSingleEvent(ctx, client, url, event)
				n := atomic.AddInt64(&submitted, 1)
				if config.Verbose {
					log.Printf("   %d/%d %s -> %s %s", n, len(events), event.Scenario, res, verdict)
				}
				results <- submission{scenario: event.Scenario, result: res, verdict: verdict}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, event := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- event:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		stats.EventsSubmitted++
		switch r.result {
		case resultScored:
			stats.EventsSuccessful++
			stats.Verdicts[r.verdict]++
			if stats.ByScenario[r.scenario] == nil {
				stats.ByScenario[r.scenario] = map[string]int{}
			}
			stats.ByScenario[r.scenario][r.verdict]++
		case resultRejected:
			stats.EventsRejected++
		default:
			stats.EventsFailed++
		}
	}

	log.Printf(`✅ Event submission completed:
   Scored: %d
   Rejected: %d
   Failed: %d
`, stats.EventsSuccessful, stats.EventsRejected, stats.EventsFailed)
}

// submitSingleEvent posts one event and classifies the answer.
func submitSingleEvent(ctx context.Context, client *HTTPClient, url string, event Event) (string, string) {
	resp, err := client.Post(ctx, url, event)
	if err != nil {
		return resultFailed, ""
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resultFailed, ""
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var v VerdictResponse
		if err := json.Unmarshal(body, &v); err != nil || v.Status != "ok" {
			return resultFailed, ""
		}
		return resultScored, v.Verdict
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		return resultRejected, ""
	default:
		return resultFailed, ""
	}
}

// fetchRecent reads the newest stored events.
func fetchRecent(ctx context.Context, config *Config, limit int) (*RecentResponse, error) {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, fmt.Sprintf("%s/events/recent?limit=%d", config.BaseURL, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent events: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recent events failed with status: %d", resp.StatusCode)
	}
	var out RecentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode recent events: %w", err)
	}
	return &out, nil
}

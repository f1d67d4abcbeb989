package testevents

import "time"

// Config holds configuration for the synthetic traffic run.
type Config struct {
	BaseURL    string        // Base URL of the gateway
	NumEvents  int           // Number of events to generate
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // Pause before reading back recent events
	OutputFile string        // Output file for events
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Event is the POST /events request body.
type Event struct {
	Wallet      string         `json:"wallet"`
	Action      string         `json:"action"`
	Amount      *float64       `json:"amount,omitempty"`
	Currency    string         `json:"currency,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	// Scenario names the profile the generator used. It is not sent.
	Scenario Scenario `json:"-"`
}

// VerdictResponse is the POST /events answer.
type VerdictResponse struct {
	Status  string   `json:"status"`
	ID      string   `json:"id"`
	Verdict string   `json:"verdict"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// RecentResponse is the GET /events/recent answer.
type RecentResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Verdict string `json:"verdict"`
		Score   int    `json:"score"`
	} `json:"data"`
	Summary map[string]int `json:"summary"`
}

// Stats holds run statistics.
type Stats struct {
	EventsGenerated  int
	EventsSubmitted  int
	EventsSuccessful int
	EventsRejected   int
	EventsFailed     int
	Verdicts         map[string]int
	ByScenario       map[Scenario]map[string]int
	RecentRetrieved  int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

func newStats() *Stats {
	return &Stats{
		Verdicts:   map[string]int{},
		ByScenario: map[Scenario]map[string]int{},
		StartTime:  time.Now(),
	}
}

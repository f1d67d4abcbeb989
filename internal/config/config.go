// Package config defines process configuration for the gateway and worker
// binaries and the layered loader that fills it.
package config

import (
	"time"

	"github.com/okian/sentinel/internal/domain/scoring"
)

// Config contains process configuration shared by both binaries.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the gateway HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// WorkerMetricsAddr is where the worker serves /healthz. Empty disables it.
	WorkerMetricsAddr string `koanf:"worker_metrics_addr"`

	// AbuseIPDBAPIKey enables reputation lookups when set.
	AbuseIPDBAPIKey     string `koanf:"abuseipdb_api_key"`
	ReputationURL       string `koanf:"reputation_url"`
	ReputationTimeoutMS int    `koanf:"reputation_timeout_ms"`
	ReputationMaxAge    int    `koanf:"reputation_max_age_days"`

	// StoreURL selects the event store by scheme: memory://, mongodb://,
	// mongodb+srv://, postgres:// or postgresql://.
	StoreURL string `koanf:"store_url"`

	// StoreDatabase overrides the MongoDB database named in StoreURL.
	StoreDatabase string `koanf:"store_database"`

	RedisURL      string `koanf:"redis_url"`
	QueueKey      string `koanf:"queue_key"`
	NotifyChannel string `koanf:"notify_channel"`
	DeadLetterKey string `koanf:"dead_letter_key"`

	// KafkaBrokers and KafkaDeadLetterTopic route dead letters to Kafka
	// when both are set.
	KafkaBrokers         []string `koanf:"kafka_brokers"`
	KafkaDeadLetterTopic string   `koanf:"kafka_dead_letter_topic"`

	WebhookURL       string `koanf:"webhook_url"`
	WebhookSecret    string `koanf:"webhook_secret"`
	WebhookTimeoutMS int    `koanf:"webhook_timeout_ms"`

	DispatchMaxAttempts  int `koanf:"dispatch_max_attempts"`
	DispatchBackoffMS    int `koanf:"dispatch_backoff_ms"`
	DispatchMaxBackoffMS int `koanf:"dispatch_max_backoff_ms"`

	// WorkerConcurrency is the number of dispatch loops sharing one deduper.
	WorkerConcurrency int `koanf:"worker_concurrency"`

	// DedupeSize bounds the worker's delivered-id memory.
	DedupeSize int `koanf:"dedupe_size"`

	// RuleWeights overrides individual rule weights by rule id.
	RuleWeights map[string]int `koanf:"rule_weights"`

	AnomalyThreshold    int `koanf:"anomaly_threshold"`
	SuspiciousThreshold int `koanf:"suspicious_threshold"`
}

// New returns a Config holding the defaults.
func New() *Config {
	th := scoring.DefaultThresholds()
	return &Config{
		LogLevel:             "info",
		Addr:                 ":8080",
		WorkerMetricsAddr:    ":9091",
		ReputationURL:        "https://api.abuseipdb.com/api/v2/check",
		ReputationTimeoutMS:  5000,
		ReputationMaxAge:     90,
		StoreURL:             "memory://",
		RedisURL:             "redis://localhost:6379/0",
		QueueKey:             "anomaly:queue",
		NotifyChannel:        "anomaly:channel",
		DeadLetterKey:        "anomaly:deadletter",
		WebhookTimeoutMS:     5000,
		DispatchMaxAttempts:  3,
		DispatchBackoffMS:    500,
		DispatchMaxBackoffMS: 5000,
		WorkerConcurrency:    1,
		DedupeSize:           50_000,
		RuleWeights:          map[string]int{},
		AnomalyThreshold:     th.Anomaly,
		SuspiciousThreshold:  th.Suspicious,
	}
}

// Thresholds returns the verdict thresholds.
func (c *Config) Thresholds() scoring.Thresholds {
	return scoring.Thresholds{Anomaly: c.AnomalyThreshold, Suspicious: c.SuspiciousThreshold}
}

// Weights returns the default weights with RuleWeights applied.
func (c *Config) Weights() (scoring.Weights, error) {
	return scoring.DefaultWeights().WithOverrides(c.RuleWeights)
}

// ReputationTimeout is ReputationTimeoutMS as a duration.
func (c *Config) ReputationTimeout() time.Duration { return ms(c.ReputationTimeoutMS) }

// WebhookTimeout is WebhookTimeoutMS as a duration.
func (c *Config) WebhookTimeout() time.Duration { return ms(c.WebhookTimeoutMS) }

// DispatchBackoff is DispatchBackoffMS as a duration.
func (c *Config) DispatchBackoff() time.Duration { return ms(c.DispatchBackoffMS) }

// DispatchMaxBackoff is DispatchMaxBackoffMS as a duration.
func (c *Config) DispatchMaxBackoff() time.Duration { return ms(c.DispatchMaxBackoffMS) }

// KafkaEnabled reports whether dead letters go to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaDeadLetterTopic != ""
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

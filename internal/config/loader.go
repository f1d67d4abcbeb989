package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read by Load outside the SENTINEL_ namespace.
const (
	EnvConfigFile = "SENTINEL_CONFIG"
	EnvDotenvFile = "SENTINEL_DOTENV"
	envPrefix     = "SENTINEL_"
	defaultDotenv = ".env"
)

var (
	// ErrLoadConfig wraps failures reading .env, YAML or environment sources.
	ErrLoadConfig = errors.New("config: load failed")
	// ErrInvalidConfig wraps Validate failures.
	ErrInvalidConfig = errors.New("config: invalid")
)

// legacyKeys maps the unprefixed variables of older deployments to keys.
var legacyKeys = map[string]string{ //nolint:gochecknoglobals // fixed lookup table
	"ABUSEIPDB_API_KEY":           "abuseipdb_api_key",
	"MONGO_URI":                   "store_url",
	"REDIS_URL":                   "redis_url",
	"ADMIN_DASHBOARD_WEBHOOK_URL": "webhook_url",
	"PORT":                        "addr",
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SENTINEL_CONFIG is set
//  3. unprefixed legacy variables (PORT, REDIS_URL, ...)
//  4. env (prefix SENTINEL_)
//
// A .env file (SENTINEL_DOTENV or ./.env) is read first; it never
// overrides variables already present in the environment.
func Load(_ context.Context) (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}

	base := New()
	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	legacy := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		name, ok := legacyKeys[key]
		if !ok || value == "" {
			return "", nil
		}
		if name == "addr" && !strings.Contains(value, ":") {
			value = ":" + value
		}
		return name, value
	})
	if err := k.Load(legacy, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// SENTINEL_REDIS_URL -> redis_url. Keys stay flat to match the koanf tags.
	prefixed := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		name := strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if name == "config" || name == "dotenv" {
			return "", nil
		}
		if name == "kafka_brokers" {
			return name, splitList(value)
		}
		return name, value
	})
	if err := k.Load(prefixed, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	cfg.RuleWeights = map[string]int{}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints. Missing credentials or webhook
// destinations are not errors; those features simply stay off.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Weights(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.DispatchMaxAttempts < 1 {
		return fmt.Errorf("%w: dispatch_max_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("%w: worker_concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.ReputationTimeoutMS <= 0 || c.WebhookTimeoutMS <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if c.DispatchBackoffMS < 0 || c.DispatchMaxBackoffMS < c.DispatchBackoffMS {
		return fmt.Errorf("%w: dispatch backoff bounds are inconsistent", ErrInvalidConfig)
	}
	return nil
}

func loadDotenv() error {
	path := os.Getenv(EnvDotenvFile)
	explicit := path != ""
	if !explicit {
		path = defaultDotenv
	}
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package testevents

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/okian/sentinel/pkg/logger"
)

// Scenario is a traffic profile aimed at a subset of the rules.
type Scenario string

// Generated scenarios.
const (
	ScenarioBenign      Scenario = "benign"
	ScenarioLargeSwap   Scenario = "large_swap"
	ScenarioLargeSend   Scenario = "large_send"
	ScenarioNewWallet   Scenario = "new_wallet"
	ScenarioVelocity    Scenario = "high_velocity"
	ScenarioGeoMismatch Scenario = "geo_mismatch"
	ScenarioSharedFP    Scenario = "shared_fingerprint"
	ScenarioKitchenSink Scenario = "kitchen_sink"
)

// scenarios is weighted towards benign traffic.
var scenarios = []Scenario{ //nolint:gochecknoglobals // fixed weighting table
	ScenarioBenign, ScenarioBenign, ScenarioBenign, ScenarioBenign,
	ScenarioLargeSwap, ScenarioLargeSend, ScenarioNewWallet,
	ScenarioVelocity, ScenarioGeoMismatch, ScenarioSharedFP, ScenarioKitchenSink,
}

var currencies = []string{"ETH", "USDC", "SOL"} //nolint:gochecknoglobals // fixed table

const (
	randomFloatDivisor = 1_000_000
	day                = 24 * time.Hour
	sharedFingerprint  = "fp-shared-farm"
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randIntn(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

func between(lo, hi float64) float64 {
	return lo + getRandomFloat()*(hi-lo)
}

// generateEvents creates n events across the weighted scenarios.
func generateEvents(ctx context.Context, config *Config, stats *Stats) []Event {
	now := time.Now().UTC()
	events := make([]Event, config.NumEvents)
	for i := range events {
		events[i] = generateSingleEvent(scenarios[randIntn(len(scenarios))], now)
	}
	stats.EventsGenerated = len(events)
	logger.Get().Info(ctx, "generated events", logger.Int("count", len(events)))
	return events
}

// generateSingleEvent builds one event for scenario s relative to now.
func generateSingleEvent(s Scenario, now time.Time) Event {
	ev := Event{
		Wallet:      "0x" + uuid.NewString()[:8],
		Action:      "connect",
		Currency:    currencies[randIntn(len(currencies))],
		Fingerprint: "fp-" + uuid.NewString()[:12],
		Scenario:    s,
		Metadata: map[string]any{
			"walletCreatedAt":  now.Add(-time.Duration(between(60, 900)) * day).Format(time.RFC3339),
			"recentAttempts":   randIntn(3),
			"lastKnownCountry": "US",
		},
	}
	amount := func(v float64) { ev.Amount = &v }

	switch s {
	case ScenarioBenign:
		ev.Action = []string{"connect", "swap", "send"}[randIntn(3)]
		if ev.Action != "connect" {
			amount(between(1, 400))
		}
	case ScenarioLargeSwap:
		ev.Action = "swap"
		amount(between(5_001, 20_000))
	case ScenarioLargeSend:
		ev.Action = "send"
		amount(between(10_001, 50_000))
	case ScenarioNewWallet:
		ev.Action = "send"
		amount(between(1_001, 5_000))
		ev.Metadata["walletCreatedAt"] = now.Add(-time.Duration(between(1, 20)) * time.Hour).Format(time.RFC3339)
	case ScenarioVelocity:
		ev.Action = "swap"
		amount(between(10, 500))
		ev.Metadata["recentAttempts"] = 6 + randIntn(10)
	case ScenarioGeoMismatch:
		ev.Metadata["lastKnownCountry"] = []string{"BR", "NG", "RU", "VN"}[randIntn(4)]
	case ScenarioSharedFP:
		ev.Fingerprint = sharedFingerprint
		ev.Metadata["fingerprintAssociatedCount"] = 4 + randIntn(6)
	case ScenarioKitchenSink:
		ev.Action = "send"
		amount(between(12_000, 80_000))
		ev.Fingerprint = sharedFingerprint
		delete(ev.Metadata, "walletCreatedAt")
		ev.Metadata["recentAttempts"] = 8
		ev.Metadata["fingerprintAssociatedCount"] = 9
		ev.Metadata["lastKnownCountry"] = "KP"
	}
	return ev
}

package scoring

import (
	"fmt"

	"github.com/okian/sentinel/internal/domain/model"
)

// RuleID names a rule for weight overrides and reporting.
type RuleID string

// Rules in evaluation order.
const (
	RuleHighIPAbuse      RuleID = "high_ip_abuse"
	RuleModerateIPAbuse  RuleID = "moderate_ip_abuse"
	RuleLowIPAbuse       RuleID = "low_ip_abuse"
	RuleProxy            RuleID = "proxy"
	RuleNewWallet        RuleID = "new_wallet_high_amount"
	RuleNewishWallet     RuleID = "newish_wallet_large_amount"
	RuleMissingWalletAge RuleID = "missing_wallet_age"
	RuleHighVelocity     RuleID = "high_velocity"
	RuleFingerprintReuse RuleID = "fingerprint_reuse"
	RuleGeoMismatch      RuleID = "geo_mismatch"
	RuleLargeSwap        RuleID = "large_swap"
	RuleLargeSend        RuleID = "large_send"
)

// Rule conditions.
const (
	HighAbuseConfidence     = 75
	ModerateAbuseConfidence = 40
	LowAbuseConfidence      = 10

	NewWalletMaxAgeDays    = 2
	NewWalletMinAmount     = 100
	NewishWalletMaxAgeDays = 7
	NewishWalletMinAmount  = 500
	MissingAgeMinAmount    = 100

	HighVelocityAttempts      = 5
	FingerprintReuseThreshold = 3

	LargeSwapAmount = 1000 // strictly greater than
	LargeSendAmount = 2000 // strictly greater than
)

// Verdict thresholds.
const (
	DefaultAnomalyThreshold    = 70
	DefaultSuspiciousThreshold = 40
)

// Weights maps every rule to its additive contribution.
type Weights map[RuleID]int

// DefaultWeights returns the stock weight table.
func DefaultWeights() Weights {
	return Weights{
		RuleHighIPAbuse:      50,
		RuleModerateIPAbuse:  25,
		RuleLowIPAbuse:       10,
		RuleProxy:            30,
		RuleNewWallet:        40,
		RuleNewishWallet:     35,
		RuleMissingWalletAge: 10,
		RuleHighVelocity:     30,
		RuleFingerprintReuse: 30,
		RuleGeoMismatch:      20,
		RuleLargeSwap:        40,
		RuleLargeSend:        50,
	}
}

// WithOverrides returns a copy of w with overrides applied. Unknown rule ids
// and negative weights are rejected.
func (w Weights) WithOverrides(overrides map[string]int) (Weights, error) {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	for k, v := range overrides {
		id := RuleID(k)
		if _, ok := w[id]; !ok {
			return nil, fmt.Errorf("%w: unknown rule %q", ErrInvalidWeights, k)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: rule %q has negative weight %d", ErrInvalidWeights, k, v)
		}
		out[id] = v
	}
	return out, nil
}

// Thresholds are the inclusive lower bounds of the upper verdict buckets.
type Thresholds struct {
	Anomaly    int
	Suspicious int
}

// DefaultThresholds returns 70/40.
func DefaultThresholds() Thresholds {
	return Thresholds{Anomaly: DefaultAnomalyThreshold, Suspicious: DefaultSuspiciousThreshold}
}

// Validate checks 0 <= Suspicious < Anomaly.
func (t Thresholds) Validate() error {
	if t.Suspicious < 0 || t.Anomaly <= t.Suspicious {
		return fmt.Errorf("%w: need 0 <= suspicious (%d) < anomaly (%d)", ErrInvalidThresholds, t.Suspicious, t.Anomaly)
	}
	return nil
}

// VerdictFor maps a score onto a verdict. Boundaries resolve upward.
func (t Thresholds) VerdictFor(score int) model.Verdict {
	switch {
	case score >= t.Anomaly:
		return model.VerdictAnomaly
	case score >= t.Suspicious:
		return model.VerdictSuspicious
	default:
		return model.VerdictClear
	}
}

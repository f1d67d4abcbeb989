// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Action enumerates the user actions the gateway accepts.
type Action string

// Known actions.
const (
	ActionConnect Action = "connect"
	ActionSwap    Action = "swap"
	ActionSend    Action = "send"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionConnect, ActionSwap, ActionSend:
		return true
	default:
		return false
	}
}

// Metadata keys read by the rule engine.
const (
	MetaWalletCreatedAt  = "walletCreatedAt"
	MetaRecentAttempts   = "recentAttempts"
	MetaFingerprintCount = "fingerprintAssociatedCount"
	MetaLastKnownCountry = "lastKnownCountry"
)

// RawEvent is a single user action as submitted by the front-end. The gateway
// stamps IP and ArrivedAt; nothing mutates it afterwards.
type RawEvent struct {
	Wallet      string         `json:"wallet" bson:"wallet"`
	Action      Action         `json:"action" bson:"action"`
	Amount      *float64       `json:"amount,omitempty" bson:"amount,omitempty"`
	Currency    string         `json:"currency,omitempty" bson:"currency,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty" bson:"fingerprint,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	IP          string         `json:"ip" bson:"ip"`
	ArrivedAt   time.Time      `json:"arrivedAt" bson:"arrivedAt"`
}

// AmountValue returns the amount, treating an absent amount as zero.
func (e *RawEvent) AmountValue() float64 {
	if e.Amount == nil {
		return 0
	}
	return *e.Amount
}

// Signals are the typed views of metadata the rules consume.
type Signals struct {
	WalletCreatedAt  *time.Time
	RecentAttempts   float64
	FingerprintCount float64
	LastKnownCountry string
}

// Signals extracts rule inputs from free-form metadata. Values of the wrong
// shape are treated as absent rather than failing.
func (e *RawEvent) Signals() Signals {
	var s Signals
	if e.Metadata == nil {
		return s
	}
	if t, ok := parseTimestamp(e.Metadata[MetaWalletCreatedAt]); ok {
		s.WalletCreatedAt = &t
	}
	s.RecentAttempts, _ = parseNumber(e.Metadata[MetaRecentAttempts])
	s.FingerprintCount, _ = parseNumber(e.Metadata[MetaFingerprintCount])
	if c, ok := e.Metadata[MetaLastKnownCountry].(string); ok {
		s.LastKnownCountry = strings.TrimSpace(c)
	}
	return s
}

func parseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var timestampLayouts = []string{ //nolint:gochecknoglobals // fixed parse table
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts RFC3339/date strings and epoch milliseconds.
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
		return time.Time{}, false
	default:
		ms, ok := parseNumber(v)
		if !ok || ms <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)).UTC(), true
	}
}

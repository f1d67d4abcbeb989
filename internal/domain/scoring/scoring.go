// Package scoring implements the deterministic rule engine that turns an
// event and its IP reputation into a score, reasons and a verdict.
//
// Evaluation performs no I/O. Wallet age is measured against the event's
// ArrivedAt stamp so that re-scoring a persisted event reproduces its verdict.
package scoring

import (
	"strings"
	"time"

	"github.com/okian/sentinel/internal/domain/model"
)

const hoursPerDay = 24

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights replaces the weight table. Missing rules weigh zero.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		if w != nil {
			e.weights = w
		}
	}
}

// WithThresholds sets the verdict thresholds.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) {
		if t.Validate() == nil {
			e.thresholds = t
		}
	}
}

// WithClock sets the reference clock used only for events without ArrivedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Result is the outcome of evaluating one event.
type Result struct {
	Score   int           `json:"score"`
	Reasons []string      `json:"reasons"`
	Verdict model.Verdict `json:"verdict"`
}

// Evaluator scores an event. Implementations must be pure and total.
type Evaluator interface {
	Evaluate(event model.RawEvent, reputation model.ReputationProfile) Result
}

// Engine is the stock Evaluator.
type Engine struct {
	weights    Weights
	thresholds Thresholds
	now        func() time.Time
}

// NewEngine creates an engine with the default table and thresholds.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		weights:    DefaultWeights(),
		thresholds: DefaultThresholds(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Thresholds exposes the configured verdict thresholds.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// input is the normalized view every rule reads.
type input struct {
	event      *model.RawEvent
	reputation *model.ReputationProfile
	signals    model.Signals
	amount     float64
	ageDays    float64
	ageKnown   bool
}

type rule struct {
	id     RuleID
	reason string
	match  func(in *input) bool
}

// rules is the fixed evaluation order; it determines reason ordering.
var rules = []rule{ //nolint:gochecknoglobals // immutable rule table
	{RuleHighIPAbuse, "High IP abuseConfidenceScore", func(in *input) bool {
		return confidenceIn(in, HighAbuseConfidence, -1)
	}},
	{RuleModerateIPAbuse, "Moderate IP abuse score", func(in *input) bool {
		return confidenceIn(in, ModerateAbuseConfidence, HighAbuseConfidence)
	}},
	{RuleLowIPAbuse, "Low IP abuse score", func(in *input) bool {
		return confidenceIn(in, LowAbuseConfidence, ModerateAbuseConfidence)
	}},
	{RuleProxy, "IP flagged as proxy/VPN/Tor", func(in *input) bool {
		return in.reputation.Proxy()
	}},
	{RuleNewWallet, "New wallet performing high-value txn", isNewWallet},
	{RuleNewishWallet, "Very new wallet with large txn", func(in *input) bool {
		return in.ageKnown && !isNewWallet(in) &&
			in.ageDays <= NewishWalletMaxAgeDays && in.amount >= NewishWalletMinAmount
	}},
	{RuleMissingWalletAge, "Missing wallet age metadata", func(in *input) bool {
		return !in.ageKnown && in.amount >= MissingAgeMinAmount
	}},
	{RuleHighVelocity, "High recent attempts from same fingerprint/wallet", func(in *input) bool {
		return in.signals.RecentAttempts >= HighVelocityAttempts
	}},
	{RuleFingerprintReuse, "Fingerprint associated with multiple wallets", func(in *input) bool {
		return in.signals.FingerprintCount >= FingerprintReuseThreshold
	}},
	{RuleGeoMismatch, "Geo mismatch between previous usage and current IP", func(in *input) bool {
		current := in.reputation.CountryCode()
		return in.signals.LastKnownCountry != "" && current != "" &&
			!strings.EqualFold(in.signals.LastKnownCountry, current)
	}},
	{RuleLargeSwap, "Very large swap", func(in *input) bool {
		return in.event.Action == model.ActionSwap && in.amount > LargeSwapAmount
	}},
	{RuleLargeSend, "Very large send", func(in *input) bool {
		return in.event.Action == model.ActionSend && in.amount > LargeSendAmount
	}},
}

func isNewWallet(in *input) bool {
	return in.ageKnown && in.ageDays <= NewWalletMaxAgeDays && in.amount >= NewWalletMinAmount
}

// confidenceIn reports lo <= confidence < hi; hi < 0 means unbounded.
func confidenceIn(in *input, lo, hi int) bool {
	c := in.reputation.AbuseConfidenceScore
	if c == nil {
		return false
	}
	return *c >= lo && (hi < 0 || *c < hi)
}

// Evaluate scores event against reputation. It never fails.
func (e *Engine) Evaluate(event model.RawEvent, reputation model.ReputationProfile) Result { //nolint:gocritic // hugeParam: value semantics keep evaluation side-effect free
	in := input{
		event:      &event,
		reputation: &reputation,
		signals:    event.Signals(),
		amount:     event.AmountValue(),
	}
	if created := in.signals.WalletCreatedAt; created != nil {
		ref := event.ArrivedAt
		if ref.IsZero() {
			ref = e.now()
		}
		in.ageDays = ref.Sub(*created).Hours() / hoursPerDay
		in.ageKnown = true
	}

	res := Result{Reasons: []string{}}
	for _, r := range rules {
		if !r.match(&in) {
			continue
		}
		res.Score += e.weights[r.id]
		res.Reasons = append(res.Reasons, r.reason)
	}
	res.Verdict = e.thresholds.VerdictFor(res.Score)
	return res
}

// Package service is the ingestion gateway's core: it enriches, scores,
// persists and hands off each event, and answers the dashboard reads.
package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/sentinel/internal/adapters/repository"
	"github.com/okian/sentinel/internal/adapters/reputation"
	"github.com/okian/sentinel/internal/adapters/webhook"
	"github.com/okian/sentinel/internal/domain/model"
	"github.com/okian/sentinel/internal/domain/scoring"
	"github.com/okian/sentinel/pkg/logger"
	"github.com/okian/sentinel/pkg/metrics"
)

// Listing bounds for Recent.
const (
	DefaultRecentLimit = 20
	MinRecentLimit     = 5
	MaxRecentLimit     = 50
)

// Queue is the producer side of the durable queue.
type Queue interface {
	Push(ctx context.Context, msg model.QueueMessage) error
	Len(ctx context.Context) (int64, error)
	Close() error
}

// Webhook is the operator destination as seen by the admin endpoints.
type Webhook interface {
	Enabled() bool
	MaskedURL() *string
	SendTest(ctx context.Context) error
}

// Stats is a point-in-time view of the gateway.
type Stats struct {
	Started           bool   `json:"started"`
	QueueLength       int64  `json:"queueLength"`
	StoreBackend      string `json:"storeBackend"`
	WebhookEnabled    bool   `json:"webhookEnabled"`
	ReputationEnabled bool   `json:"reputationEnabled"`
}

type noReputation struct{}

func (noReputation) Lookup(context.Context, string) model.ReputationProfile {
	return model.NeutralReputation(model.ReputationNoAPIKey)
}

// Service runs the sequential ingestion pipeline. It holds no per-request
// state; store and queue synchronize themselves.
type Service struct {
	mu      sync.RWMutex
	started bool

	store      repository.Store
	queue      Queue
	reputation reputation.Looker
	engine     scoring.Evaluator
	webhook    Webhook

	newID  func() string
	now    func() time.Time
	logger logger.Logger
}

// New wires the pipeline around an injected store and queue.
func New(store repository.Store, queue Queue, opts ...Option) *Service {
	s := &Service{
		store:      store,
		queue:      queue,
		reputation: noReputation{},
		engine:     scoring.NewEngine(),
		newID:      func() string { return uuid.NewString() },
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.started = true
	s.logger.Info(ctx, "gateway service started",
		logger.String("store", s.store.Backend()),
		logger.Bool("webhook", s.webhook != nil && s.webhook.Enabled()),
	)
	return nil
}

// Stop releases the store and the queue.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false

	if err := s.queue.Close(); err != nil {
		s.logger.Error(ctx, "closing queue failed", logger.Error(err))
	}
	if err := s.store.Close(ctx); err != nil {
		s.logger.Error(ctx, "closing store failed", logger.Error(err))
	}
	s.logger.Info(ctx, "gateway service stopped")
}

// Validate checks the caller-supplied part of an event.
func Validate(ev *model.RawEvent) error {
	if strings.TrimSpace(ev.Wallet) == "" {
		return fmt.Errorf("%w: wallet is required", ErrValidation)
	}
	if ev.Action == "" {
		return fmt.Errorf("%w: action is required", ErrValidation)
	}
	if !ev.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrValidation, ev.Action)
	}
	if ev.Amount != nil {
		a := *ev.Amount
		if math.IsNaN(a) || math.IsInf(a, 0) || a < 0 {
			return fmt.Errorf("%w: amount must be a non-negative number", ErrValidation)
		}
	}
	return nil
}

// Ingest scores ev and records the verdict. A failed store write fails the
// call with ErrPersist and nothing is queued. A failed queue push after a
// successful write is logged and the verdict is still returned.
func (s *Service) Ingest(ctx context.Context, ev model.RawEvent) (*model.ScoredEvent, error) { //nolint:gocritic // hugeParam: the event is owned by the pipeline from here on
	if err := Validate(&ev); err != nil {
		return nil, err
	}
	ev.Wallet = strings.TrimSpace(ev.Wallet)
	if ev.ArrivedAt.IsZero() {
		ev.ArrivedAt = s.now().UTC()
	}

	rep := s.reputation.Lookup(ctx, ev.IP)

	start := time.Now()
	res := s.engine.Evaluate(ev, rep)
	metrics.RecordEvaluationLatency(float64(time.Since(start).Microseconds()) / 1000)

	scored := &model.ScoredEvent{
		ID:         s.newID(),
		Event:      ev,
		Reputation: rep,
		Score:      res.Score,
		Reasons:    res.Reasons,
		Verdict:    res.Verdict,
		CreatedAt:  s.now().UTC(),
	}
	fields := []logger.Field{
		logger.String("id", scored.ID),
		logger.String("wallet", ev.Wallet),
		logger.String("verdict", string(scored.Verdict)),
		logger.Int("score", scored.Score),
		logger.String("ipRisk", string(rep.Status)),
	}

	if err := s.store.Insert(ctx, scored); err != nil {
		metrics.RecordErrorByComponent("service", "persist")
		s.logger.Error(ctx, "persisting scored event failed", append(fields, logger.Error(err))...)
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	metrics.RecordEventScored(string(scored.Verdict), scored.Score)

	if err := s.queue.Push(ctx, scored.Message()); err != nil {
		// The event stays scored but will never be considered for alerting.
		metrics.RecordErrorByComponent("service", "queue_handoff")
		s.logger.Error(ctx, "queue handoff failed, event will not alert", append(fields, logger.Error(err))...)
	}

	s.logger.Debug(ctx, "event scored", fields...)
	return scored, nil
}

// ClampRecentLimit bounds a requested listing size to [5, 50].
func ClampRecentLimit(n int) int {
	return min(MaxRecentLimit, max(MinRecentLimit, n))
}

// Recent lists the newest scored events with a verdict tally of the page.
func (s *Service) Recent(ctx context.Context, limit int) ([]model.ScoredEvent, model.VerdictSummary, error) {
	events, err := s.store.Recent(ctx, ClampRecentLimit(limit))
	if err != nil {
		return nil, model.VerdictSummary{}, fmt.Errorf("list recent events: %w", err)
	}
	return events, model.Summarize(events), nil
}

// FingerprintCount counts persisted events sharing fp.
func (s *Service) FingerprintCount(ctx context.Context, fp string) (int64, error) {
	n, err := s.store.CountByFingerprint(ctx, fp)
	if err != nil {
		return 0, fmt.Errorf("count fingerprint: %w", err)
	}
	return n, nil
}

// WebhookStatus reports whether alerts can be delivered and to where.
func (s *Service) WebhookStatus() (bool, *string) {
	if s.webhook == nil {
		return false, nil
	}
	return s.webhook.Enabled(), s.webhook.MaskedURL()
}

// TestWebhook posts a connectivity check to the operator webhook.
func (s *Service) TestWebhook(ctx context.Context) error {
	if s.webhook == nil {
		return webhook.ErrNotConfigured
	}
	return s.webhook.SendTest(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:      s.started,
		StoreBackend: s.store.Backend(),
	}
	st.WebhookEnabled, _ = s.WebhookStatus()
	if r, ok := s.reputation.(interface{ Enabled() bool }); ok {
		st.ReputationEnabled = r.Enabled()
	}
	if s.started {
		n, err := s.queue.Len(ctx)
		if err != nil {
			s.logger.Warn(ctx, "reading queue length failed", logger.Error(err))
		}
		st.QueueLength = n
		metrics.UpdateQueueLength(n)
	}
	return st
}

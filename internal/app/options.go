package service

import (
	"time"

	"github.com/okian/sentinel/internal/adapters/reputation"
	"github.com/okian/sentinel/internal/domain/scoring"
	"github.com/okian/sentinel/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithReputation sets the IP reputation client.
func WithReputation(l reputation.Looker) Option {
	return func(s *Service) {
		if l != nil {
			s.reputation = l
		}
	}
}

// WithEvaluator sets the rule engine.
func WithEvaluator(e scoring.Evaluator) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithWebhook sets the operator webhook used by the status and test calls.
func WithWebhook(w Webhook) Option {
	return func(s *Service) {
		if w != nil {
			s.webhook = w
		}
	}
}

// WithIDGenerator sets how scored event ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock sets the clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

package worker

import (
	"time"

	"github.com/okian/sentinel/internal/adapters/mq/deadletter"
	"github.com/okian/sentinel/internal/domain/dedupe"
	"github.com/okian/sentinel/pkg/logger"
)

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithRetryPolicy sets the dispatch retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(w *Worker) {
		if p.MaxAttempts >= 1 {
			w.policy = p
		}
	}
}

// WithDeadLetter sets where undeliverable alerts go.
func WithDeadLetter(s deadletter.Sink) Option {
	return func(w *Worker) {
		if s != nil {
			w.deadLetter = s
		}
	}
}

// WithDeduper shares a deduper between workers.
func WithDeduper(d dedupe.Deduper) Option {
	return func(w *Worker) {
		if d != nil {
			w.dedupe = d
		}
	}
}

// WithGracePeriod bounds the requeue and dead-letter writes made after the
// run context is gone.
func WithGracePeriod(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.grace = d
		}
	}
}

// WithClock sets the clock used for dead-letter timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

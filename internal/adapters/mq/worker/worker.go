// Package worker drains the alert queue and dispatches ANOMALY verdicts to
// the operator webhook.
//
// Each message moves through Popped, then Skip or Dispatch, then Delivered,
// Failed or DeadLettered, and is discarded. A failing message never stops
// the loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/sentinel/internal/adapters/mq/deadletter"
	"github.com/okian/sentinel/internal/adapters/mq/queue"
	"github.com/okian/sentinel/internal/adapters/webhook"
	"github.com/okian/sentinel/internal/domain/dedupe"
	"github.com/okian/sentinel/internal/domain/model"
	"github.com/okian/sentinel/pkg/logger"
	"github.com/okian/sentinel/pkg/metrics"
)

const (
	defaultGracePeriod = 5 * time.Second
	popErrorDelay      = time.Second
)

// Outcome is the terminal state of one message.
type Outcome string

// Message outcomes.
const (
	OutcomeSkipped      Outcome = "skipped"
	OutcomeNoWebhook    Outcome = "no_webhook"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeDelivered    Outcome = "delivered"
	OutcomeFailed       Outcome = "failed"
	OutcomeDeadLettered Outcome = "dead_lettered"
	OutcomeRequeued     Outcome = "requeued"
)

// Queue is what the worker consumes.
type Queue interface {
	Pop(ctx context.Context) (model.QueueMessage, error)
	Requeue(ctx context.Context, msg model.QueueMessage) error
	Notifications(ctx context.Context) <-chan string
}

// Dispatcher delivers one alert.
type Dispatcher interface {
	Enabled() bool
	SendAlert(ctx context.Context, msg *model.QueueMessage) error
}

// Worker is a single queue consumer.
type Worker struct {
	queue      Queue
	dispatcher Dispatcher
	policy     RetryPolicy
	deadLetter deadletter.Sink
	dedupe     dedupe.Deduper
	grace      time.Duration
	now        func() time.Time
	name       string
	logger     logger.Logger
}

// New creates a worker. Undeliverable alerts are logged unless a dead-letter
// sink is configured.
func New(q Queue, d Dispatcher, opts ...Option) *Worker {
	w := &Worker{
		queue:      q,
		dispatcher: d,
		policy:     DefaultRetryPolicy(),
		grace:      defaultGracePeriod,
		now:        time.Now,
		name:       "worker",
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	if w.deadLetter == nil {
		w.deadLetter = deadletter.NewLogSink(w.logger)
	}
	if w.dedupe == nil {
		w.dedupe = dedupe.NewInMemoryDeduper()
	}
	return w
}

// Run consumes messages until ctx is done or the queue is closed.
func (w *Worker) Run(ctx context.Context) error {
	go w.watchNotifications(ctx)
	metrics.SetWorkerIdle(true)

	for {
		if ctx.Err() != nil {
			return nil
		}
		msg, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return nil
			}
			if errors.Is(err, queue.ErrMalformed) {
				w.logger.Error(ctx, "discarding malformed message", logger.Error(err))
				metrics.RecordErrorByComponent("worker", "malformed_message")
				continue
			}
			w.logger.Error(ctx, "queue pop failed", logger.Error(err))
			metrics.RecordErrorByComponent("worker", "pop_error")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(popErrorDelay):
			}
			continue
		}

		metrics.SetWorkerIdle(false)
		outcome := w.Process(ctx, &msg)
		metrics.RecordDispatchOutcome(string(outcome))
		metrics.SetWorkerIdle(true)
	}
}

// watchNotifications drains advisory notifications. Pop stays authoritative.
func (w *Worker) watchNotifications(ctx context.Context) {
	for id := range w.queue.Notifications(ctx) {
		w.logger.Debug(ctx, "work available", logger.String("alertId", id))
	}
}

// Process drives one message to its terminal state.
func (w *Worker) Process(ctx context.Context, msg *model.QueueMessage) Outcome {
	fields := []logger.Field{
		logger.String("alertId", msg.ID),
		logger.String("verdict", string(msg.Verdict)),
		logger.Int("score", msg.Score),
	}

	if msg.Verdict != model.VerdictAnomaly {
		w.logger.Debug(ctx, "no alert needed", fields...)
		return OutcomeSkipped
	}
	if w.dispatcher == nil || !w.dispatcher.Enabled() {
		w.logger.Info(ctx, "anomaly dropped, no webhook configured", fields...)
		return OutcomeNoWebhook
	}
	if w.dedupe.SeenAndRecord(ctx, msg.ID) {
		w.logger.Info(ctx, "duplicate alert discarded", fields...)
		return OutcomeDuplicate
	}

	attempts, err := w.policy.Do(ctx, func(ctx context.Context) error {
		start := time.Now()
		err := w.dispatcher.SendAlert(ctx, msg)
		metrics.RecordDispatchAttempt(float64(time.Since(start).Milliseconds()))
		if err != nil {
			w.logger.Warn(ctx, "alert dispatch attempt failed", append(fields, logger.Error(err))...)
		}
		return err
	})
	fields = append(fields, logger.Int("attempts", attempts))

	switch {
	case err == nil:
		w.logger.Info(ctx, "alert delivered", fields...)
		return OutcomeDelivered
	case ctx.Err() != nil:
		return w.requeue(msg, fields)
	}

	w.logger.Error(ctx, "alert dispatch failed", append(fields, logger.Error(err))...)
	return w.bury(msg, attempts, err, fields)
}

// requeue hands an interrupted message back so the next consumer sees it first.
func (w *Worker) requeue(msg *model.QueueMessage, fields []logger.Field) Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), w.grace)
	defer cancel()

	w.dedupe.Unrecord(ctx, msg.ID)
	if err := w.queue.Requeue(ctx, *msg); err != nil {
		w.logger.Error(ctx, "requeue on shutdown failed, alert lost", append(fields, logger.Error(err))...)
		return w.bury(msg, 0, fmt.Errorf("requeue on shutdown: %w", err), fields)
	}
	w.logger.Info(ctx, "alert requeued on shutdown", fields...)
	return OutcomeRequeued
}

// bury hands a failed alert to the dead-letter sink.
func (w *Worker) bury(msg *model.QueueMessage, attempts int, cause error, fields []logger.Field) Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), w.grace)
	defer cancel()

	entry := deadletter.Entry{
		Message:  *msg,
		Reason:   cause.Error(),
		Attempts: attempts,
		FailedAt: w.now().UTC(),
	}
	var se *webhook.StatusError
	if errors.As(cause, &se) {
		entry.LastStatus = se.Code
	}

	err := w.deadLetter.Send(ctx, entry)
	metrics.RecordDeadLetter(w.deadLetter.Name(), err)
	if err != nil {
		w.logger.Error(ctx, "dead-letter write failed", append(fields,
			logger.String("sink", w.deadLetter.Name()), logger.Error(err))...)
		return OutcomeFailed
	}
	return OutcomeDeadLettered
}

// Command worker drains the alert queue and delivers ANOMALY verdicts to the
// operator webhook.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/sentinel/internal/adapters/http/api"
	"github.com/okian/sentinel/internal/adapters/mq/deadletter"
	"github.com/okian/sentinel/internal/adapters/mq/queue"
	"github.com/okian/sentinel/internal/adapters/mq/worker"
	"github.com/okian/sentinel/internal/adapters/webhook"
	"github.com/okian/sentinel/internal/config"
	"github.com/okian/sentinel/internal/domain/dedupe"
	"github.com/okian/sentinel/pkg/logger"
)

const (
	connectTimeout    = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(); err != nil {
		logger.Get().Error(context.Background(), "worker exited", logger.Error(err))
		os.Exit(1) //nolint:gocritic // logger sync is best effort
	}
}

func run() error {
	log := logger.Get().Named("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	q, err := queue.Dial(connectCtx, cfg.RedisURL,
		queue.WithKey(cfg.QueueKey),
		queue.WithChannel(cfg.NotifyChannel),
	)
	if err != nil {
		return err
	}
	defer func() { _ = q.Close() }()

	sink, err := openDeadLetter(cfg, q, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Warn(context.Background(), "closing dead-letter sink failed", logger.Error(err))
		}
	}()

	hook := webhook.New(cfg.WebhookURL,
		webhook.WithSecret(cfg.WebhookSecret),
		webhook.WithTimeout(cfg.WebhookTimeout()),
	)
	if !hook.Enabled() {
		log.Warn(ctx, "webhook_url not set; ANOMALY alerts will be discarded")
	}

	pool := worker.NewPool(cfg.WorkerConcurrency, q, hook,
		worker.WithRetryPolicy(worker.RetryPolicy{
			MaxAttempts:    cfg.DispatchMaxAttempts,
			InitialBackoff: cfg.DispatchBackoff(),
			MaxBackoff:     cfg.DispatchMaxBackoff(),
		}),
		worker.WithDeadLetter(sink),
		worker.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))),
	)

	srv := metricsServer(cfg.WorkerMetricsAddr)
	if srv != nil {
		go func() {
			log.Info(ctx, "serving worker metrics", logger.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "metrics server failed", logger.Error(err))
			}
		}()
	}

	log.Info(ctx, "worker starting",
		logger.Int("concurrency", pool.Size()),
		logger.String("deadLetter", sink.Name()),
		logger.Int("maxAttempts", cfg.DispatchMaxAttempts))
	pool.Run(ctx)

	if srv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}
	return nil
}

// openDeadLetter prefers Kafka when configured, then the Redis list next to
// the queue.
func openDeadLetter(cfg *config.Config, q *queue.RedisQueue, log logger.Logger) (deadletter.Sink, error) {
	if cfg.KafkaEnabled() {
		return deadletter.DialKafka(cfg.KafkaBrokers, cfg.KafkaDeadLetterTopic)
	}
	if cfg.DeadLetterKey != "" {
		return deadletter.NewRedisSink(q.Client(), cfg.DeadLetterKey), nil
	}
	return deadletter.NewLogSink(log), nil
}

func metricsServer(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	r := chi.NewRouter()
	r.Get("/healthz", api.NewHealthHandler().HandleHealth)
	return &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: readHeaderTimeout}
}

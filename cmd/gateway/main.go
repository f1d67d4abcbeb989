// Command gateway serves the event ingestion API: it scores each event,
// persists the verdict and hands it to the alert queue.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/sentinel/internal/adapters/http/api"
	"github.com/okian/sentinel/internal/adapters/http/swagger"
	"github.com/okian/sentinel/internal/adapters/mq/queue"
	"github.com/okian/sentinel/internal/adapters/repository"
	"github.com/okian/sentinel/internal/adapters/reputation"
	"github.com/okian/sentinel/internal/adapters/webhook"
	service "github.com/okian/sentinel/internal/app"
	"github.com/okian/sentinel/internal/config"
	"github.com/okian/sentinel/internal/domain/scoring"
	"github.com/okian/sentinel/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 15 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	connectTimeout         = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(); err != nil {
		logger.Get().Error(context.Background(), "gateway exited", logger.Error(err))
		os.Exit(1) //nolint:gocritic // logger sync is best effort
	}
}

func run() error {
	log := logger.Get().Named("gateway")

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

	weights, err := cfg.Weights()
	if err != nil {
		return err
	}
	engine := scoring.NewEngine(scoring.WithWeights(weights), scoring.WithThresholds(cfg.Thresholds()))

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	store, err := repository.Open(connectCtx, cfg.StoreURL,
		repository.WithDatabase(cfg.StoreDatabase),
		repository.WithMetrics(true),
	)
	if err != nil {
		return err
	}

	q, err := openQueue(connectCtx, cfg, log)
	if err != nil {
		_ = store.Close(context.Background())
		return err
	}

	svc := service.New(store, q,
		service.WithEvaluator(engine),
		service.WithReputation(reputation.New(cfg.AbuseIPDBAPIKey,
			reputation.WithBaseURL(cfg.ReputationURL),
			reputation.WithTimeout(cfg.ReputationTimeout()),
			reputation.WithMaxAgeDays(cfg.ReputationMaxAge),
		)),
		service.WithWebhook(webhook.New(cfg.WebhookURL,
			webhook.WithSecret(cfg.WebhookSecret),
			webhook.WithTimeout(cfg.WebhookTimeout()),
		)),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		svc.Stop(stopCtx)
	}()

	go startServiceMetricsUpdater(ctx, svc)

	r := chi.NewRouter()
	api.NewServer(svc).Register(r)
	swagger.Register(r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", store.Backend()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// openQueue dials Redis, or uses a process-local queue for memory:// URLs.
func openQueue(ctx context.Context, cfg *config.Config, log logger.Logger) (service.Queue, error) {
	opts := []queue.Option{queue.WithKey(cfg.QueueKey), queue.WithChannel(cfg.NotifyChannel)}
	if cfg.RedisURL == "" || strings.HasPrefix(cfg.RedisURL, "memory://") {
		log.Warn(ctx, "using in-process queue; no worker can consume these alerts")
		return queue.NewInMemoryQueue(opts...), nil
	}
	return queue.Dial(ctx, cfg.RedisURL, opts...)
}

// startServiceMetricsUpdater publishes the queue depth periodically.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes the queue length gauge.
			_ = svc.GetStats(ctx)
		}
	}
}

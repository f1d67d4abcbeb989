package worker

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/sentinel/internal/domain/dedupe"
	"github.com/okian/sentinel/pkg/logger"
	"github.com/okian/sentinel/pkg/metrics"
)

const (
	metricsUpdateInterval = 5 * time.Second
	maxConcurrency        = 64
)

// Pool runs several consumers against one queue. They share a deduper so a
// redelivered alert is dispatched once per process.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates n workers; n < 1 means one.
func NewPool(n int, q Queue, d Dispatcher, opts ...Option) *Pool {
	if n < 1 {
		n = 1
	}
	if n > maxConcurrency {
		n = maxConcurrency
	}
	shared := dedupe.NewInMemoryDeduper()

	p := &Pool{
		workers: make([]*Worker, n),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithDeduper(shared)}, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = New(q, d, wopts...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Run starts every worker and blocks until all of them return.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				p.logger.Error(ctx, "worker stopped with error", logger.String("worker", w.name), logger.Error(err))
			}
		}(w)
	}

	go p.updateSystemMetrics(ctx)
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
	wg.Wait()
	p.logger.Info(ctx, "worker pool stopped")
}

func (p *Pool) updateSystemMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()
	var ms runtime.MemStats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runtime.ReadMemStats(&ms)
			metrics.UpdateSystemMemoryUsage(ms.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		}
	}
}

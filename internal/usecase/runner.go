package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"streambench/internal/domain"
)

// Runner fans a fixed request workload out to an LLM client and records
// every result. Each in-flight request owns its own stream state, so no
// synchronization is needed beyond the sink's.
type Runner struct {
	client      domain.LLMClient
	sink        domain.MetricsSink
	logger      *slog.Logger
	concurrency int
	limiter     *rate.Limiter
}

// NewRunner creates a Runner. qps <= 0 disables rate limiting.
func NewRunner(client domain.LLMClient, sink domain.MetricsSink, logger *slog.Logger, concurrency int, qps float64) *Runner {
	if concurrency <= 0 {
		concurrency = 1
	}
	var limiter *rate.Limiter
	if qps > 0 {
		limiter = rate.NewLimiter(rate.Limit(qps), 1)
	}
	return &Runner{
		client:      client,
		sink:        sink,
		logger:      logger,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// Run sends n requests derived from template, each with a fresh ULID.
// Transport failures are recorded to the sink like any other result; a
// configuration error from the client aborts the remainder of the run and
// is returned.
func (r *Runner) Run(ctx context.Context, n int, template domain.RequestConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, r.concurrency)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		runErr error
	)

	for i := 0; i < n && ctx.Err() == nil; i++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				break
			}
		}
		sem <- struct{}{}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			req := template
			req.ID = ulid.Make().String()

			metrics, _, err := r.client.Send(ctx, req)
			if err != nil {
				mu.Lock()
				if runErr == nil {
					runErr = err
				}
				mu.Unlock()
				cancel()
				return
			}

			if metrics.Failed() {
				r.logger.Warn("request errored",
					"id", req.ID,
					"code", metrics.ErrorCode,
					"message", metrics.ErrorMessage,
				)
			}
			if err := r.sink.Record(ctx, metrics); err != nil {
				r.logger.Error("record metrics", "id", req.ID, "error", err)
			}
		}()
	}

	wg.Wait()
	return runErr
}

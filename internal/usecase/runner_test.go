package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streambench/internal/domain"
)

type fakeClient struct {
	sends int64
	send  func(ctx context.Context, req domain.RequestConfig) (domain.RequestMetrics, string, error)
}

func (f *fakeClient) Send(ctx context.Context, req domain.RequestConfig) (domain.RequestMetrics, string, error) {
	atomic.AddInt64(&f.sends, 1)
	return f.send(ctx, req)
}

func (f *fakeClient) Name() string { return "fake" }

type collectingSink struct {
	mu      sync.Mutex
	records []domain.RequestMetrics
}

func (s *collectingSink) Record(_ context.Context, m domain.RequestMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, m)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunnerRecordsEveryRequest(t *testing.T) {
	client := &fakeClient{
		send: func(_ context.Context, req domain.RequestConfig) (domain.RequestMetrics, string, error) {
			return domain.RequestMetrics{ID: req.ID, NumOutputTokens: 7}, "text", nil
		},
	}
	sink := &collectingSink{}
	runner := NewRunner(client, sink, testLogger(), 3, 0)

	err := runner.Run(context.Background(), 10, domain.RequestConfig{Model: "ep", Prompt: "p"})
	require.NoError(t, err)

	require.Len(t, sink.records, 10)
	seen := map[string]bool{}
	for _, m := range sink.records {
		assert.NotEmpty(t, m.ID)
		assert.False(t, seen[m.ID], "duplicate request ID %s", m.ID)
		seen[m.ID] = true
	}
	assert.EqualValues(t, 10, atomic.LoadInt64(&client.sends))
}

func TestRunnerRecordsFailedRequests(t *testing.T) {
	client := &fakeClient{
		send: func(_ context.Context, req domain.RequestConfig) (domain.RequestMetrics, string, error) {
			return domain.RequestMetrics{
				ID:           req.ID,
				ErrorCode:    domain.ErrorCodeServer,
				ErrorMessage: "boom",
			}, "", nil
		},
	}
	sink := &collectingSink{}
	runner := NewRunner(client, sink, testLogger(), 1, 0)

	err := runner.Run(context.Background(), 3, domain.RequestConfig{Model: "ep"})
	require.NoError(t, err)
	require.Len(t, sink.records, 3)
	for _, m := range sink.records {
		assert.True(t, m.Failed())
	}
}

func TestRunnerAbortsOnConfigError(t *testing.T) {
	client := &fakeClient{
		send: func(_ context.Context, _ domain.RequestConfig) (domain.RequestMetrics, string, error) {
			return domain.RequestMetrics{}, "", domain.ErrMissingEnv
		},
	}
	sink := &collectingSink{}
	runner := NewRunner(client, sink, testLogger(), 1, 0)

	err := runner.Run(context.Background(), 100, domain.RequestConfig{Model: "ep"})
	require.ErrorIs(t, err, domain.ErrMissingEnv)
	assert.Empty(t, sink.records)
	assert.Less(t, atomic.LoadInt64(&client.sends), int64(100), "run should stop early")
}

func TestRunnerHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{
		send: func(_ context.Context, req domain.RequestConfig) (domain.RequestMetrics, string, error) {
			return domain.RequestMetrics{ID: req.ID}, "", nil
		},
	}
	sink := &collectingSink{}
	runner := NewRunner(client, sink, testLogger(), 2, 0)

	err := runner.Run(ctx, 50, domain.RequestConfig{Model: "ep"})
	require.NoError(t, err)
	assert.Empty(t, sink.records)
}

func TestNewRunnerClampsConcurrency(t *testing.T) {
	runner := NewRunner(&fakeClient{send: nil}, &collectingSink{}, testLogger(), 0, 0)
	assert.Equal(t, 1, runner.concurrency)
}

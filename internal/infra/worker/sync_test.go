package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"werss-client/internal/domain/entity"
	"werss-client/internal/handler/http/requestid"
	"werss-client/internal/infra/api"
)

type fakeSyncer struct {
	mu       sync.Mutex
	calls    int
	mpIDs    []string
	reqIDs   []string
	deadline bool
	result   *entity.SyncResult
	err      error
	block    chan struct{}
}

func (f *fakeSyncer) SyncSubscription(ctx context.Context, mpID string, startPage, endPage int) (*entity.SyncResult, error) {
	f.mu.Lock()
	f.calls++
	f.mpIDs = append(f.mpIDs, mpID)
	f.reqIDs = append(f.reqIDs, requestid.FromContext(ctx))
	_, f.deadline = ctx.Deadline()
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeSyncer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSyncJob_Success(t *testing.T) {
	// Arrange
	syncer := &fakeSyncer{result: &entity.SyncResult{Total: 5, TimeSpan: 3}}
	metrics := NewWorkerMetrics(prometheus.NewRegistry())
	job := NewSyncJob(syncer, time.Minute, metrics, nil)

	// Act
	err := job.Run(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{""}, syncer.mpIDs, "empty id syncs every subscription")
	assert.Len(t, syncer.reqIDs[0], 36)
	assert.True(t, syncer.deadline)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SyncJobRunsTotal.WithLabelValues("started")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SyncJobRunsTotal.WithLabelValues("success")))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.SyncSubscriptions))
}

func TestSyncJob_Failure(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("connection refused")}
	metrics := NewWorkerMetrics(prometheus.NewRegistry())
	job := NewSyncJob(syncer, time.Minute, metrics, nil)

	err := job.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduled sync: connection refused")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SyncJobRunsTotal.WithLabelValues("failure")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.SyncLastSuccessTimestamp))
}

func TestSyncJob_ThrottledIsNotFailure(t *testing.T) {
	syncer := &fakeSyncer{err: fmt.Errorf("sync subscription all: %w", api.ErrSyncTooFrequent)}
	metrics := NewWorkerMetrics(prometheus.NewRegistry())
	job := NewSyncJob(syncer, time.Minute, metrics, nil)

	err := job.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SyncJobRunsTotal.WithLabelValues("throttled")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.SyncJobRunsTotal.WithLabelValues("failure")))
}

func TestSyncJob_SkipsOverlappingRuns(t *testing.T) {
	// Arrange
	block := make(chan struct{})
	syncer := &fakeSyncer{block: block, result: &entity.SyncResult{}}
	metrics := NewWorkerMetrics(prometheus.NewRegistry())
	job := NewSyncJob(syncer, time.Minute, metrics, nil)

	done := make(chan error, 1)
	go func() { done <- job.Run(context.Background()) }()
	require.Eventually(t, func() bool { return syncer.callCount() == 1 }, time.Second, time.Millisecond)

	// Act
	err := job.Run(context.Background())
	close(block)

	// Assert
	assert.ErrorIs(t, err, ErrSyncInProgress)
	require.NoError(t, <-done)
	assert.Equal(t, 1, syncer.callCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SyncJobRunsTotal.WithLabelValues("skipped")))
}

func TestSyncJob_TimeoutCancels(t *testing.T) {
	syncer := &fakeSyncer{block: make(chan struct{})}
	job := NewSyncJob(syncer, 20*time.Millisecond, nil, nil)

	err := job.Run(context.Background())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ───────────────────────────────────────────────────────────
// Scheduler
// ───────────────────────────────────────────────────────────

func TestRunScheduler_RunsUntilCancelled(t *testing.T) {
	// Arrange
	syncer := &fakeSyncer{result: &entity.SyncResult{}}
	job := NewSyncJob(syncer, time.Minute, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	var returned atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- job.RunScheduler(ctx, "@every 1s", time.UTC)
		returned.Store(true)
	}()

	// Act
	require.Eventually(t, func() bool { return syncer.callCount() >= 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()

	// Assert
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.True(t, returned.Load())
}

func TestRunScheduler_InvalidSpec(t *testing.T) {
	job := NewSyncJob(&fakeSyncer{}, time.Minute, nil, nil)

	err := job.RunScheduler(context.Background(), "not a cron", time.UTC)

	assert.ErrorContains(t, err, "invalid cron schedule")
}

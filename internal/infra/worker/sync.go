package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"werss-client/internal/domain/entity"
	"werss-client/internal/handler/http/requestid"
	"werss-client/internal/infra/api"
	"werss-client/internal/pkg/config"
)

// Syncer triggers a backend subscription sync. *api.Client satisfies it.
type Syncer interface {
	SyncSubscription(ctx context.Context, mpID string, startPage, endPage int) (*entity.SyncResult, error)
}

// ErrSyncInProgress is returned by Run while a previous run is still going.
var ErrSyncInProgress = errors.New("sync already in progress")

// SyncJob asks the backend to refresh every subscription. The backend does
// the fetching; new articles then reach the monitor through its poll.
type SyncJob struct {
	syncer  Syncer
	timeout time.Duration
	metrics *WorkerMetrics
	logger  *slog.Logger
	running atomic.Bool
}

// NewSyncJob creates a SyncJob. metrics may be nil.
func NewSyncJob(syncer Syncer, timeout time.Duration, metrics *WorkerMetrics, logger *slog.Logger) *SyncJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncJob{syncer: syncer, timeout: timeout, metrics: metrics, logger: logger}
}

// Run performs one sync. Overlapping runs are skipped, and a backend
// "too frequent" refusal is logged and not treated as a failure.
func (j *SyncJob) Run(ctx context.Context) error {
	if !j.running.CompareAndSwap(false, true) {
		j.record("skipped")
		j.logger.Warn("sync skipped, previous run still in progress")
		return ErrSyncInProgress
	}
	defer j.running.Store(false)

	ctx, reqID := requestid.Ensure(ctx)
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	j.record("started")
	j.logger.Info("sync started", slog.String("request_id", reqID))

	res, err := j.syncer.SyncSubscription(ctx, "", 0, 1)
	elapsed := time.Since(start)
	if j.metrics != nil {
		j.metrics.RecordJobDuration(elapsed)
	}

	switch {
	case errors.Is(err, api.ErrSyncTooFrequent):
		j.record("throttled")
		j.logger.Info("sync throttled by backend", slog.String("request_id", reqID))
		return nil
	case err != nil:
		j.record("failure")
		j.logger.Error("sync failed",
			slog.String("request_id", reqID),
			slog.Duration("duration", elapsed),
			slog.Any("error", err))
		return fmt.Errorf("scheduled sync: %w", err)
	}

	j.record("success")
	if j.metrics != nil {
		j.metrics.RecordSuccess(res.Total)
	}
	j.logger.Info("sync completed",
		slog.String("request_id", reqID),
		slog.Int("subscriptions", res.Total),
		slog.Int("time_span", res.TimeSpan),
		slog.Duration("duration", elapsed))
	return nil
}

func (j *SyncJob) record(status string) {
	if j.metrics != nil {
		j.metrics.RecordJobRun(status)
	}
}

// RunScheduler runs the job on schedule in loc until ctx is cancelled, then
// waits for an in-flight run to return. Runs receive ctx, so cancellation
// also aborts them.
func (j *SyncJob) RunScheduler(ctx context.Context, schedule string, loc *time.Location) error {
	if err := config.ValidateCronSchedule(schedule); err != nil {
		return err
	}
	if loc == nil {
		loc = time.UTC
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
	)
	if _, err := c.AddFunc(schedule, func() { _ = j.Run(ctx) }); err != nil {
		return fmt.Errorf("add sync job: %w", err)
	}
	c.Start()
	j.logger.Info("sync scheduler started",
		slog.String("schedule", schedule),
		slog.String("timezone", loc.String()))

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("sync scheduler stopped")
	return nil
}

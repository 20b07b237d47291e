package usecase

import (
	"context"
	"fmt"
	"time"

	domrepo "OpsPulse/internal/domain/repository"
	"OpsPulse/pkg/logger"
	"OpsPulse/pkg/queue"
)

// RefreshMessageType identifies refresh messages on the work queue.
const RefreshMessageType = "report.refresh"

// refreshLockTTL bounds how long a refresh lock can outlive its holder.
const refreshLockTTL = 2 * time.Minute

// RefreshLocker keeps concurrent instances from rebuilding the same
// metric at once. The Redis cache satisfies it.
type RefreshLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// RefreshPayload is the body of one refresh message.
type RefreshPayload struct {
	MetricID string `json:"metric"`
	Window   string `json:"window"`
	Limit    int    `json:"limit"`
}

// RefreshJob rebuilds one metric's report and evaluates its threshold.
// Failures are returned so the queue retries with backoff.
type RefreshJob struct {
	builder *ReportBuilder
	alerts  *AlertDispatcher
	locks   RefreshLocker
	l       *logger.Logger
}

func NewRefreshJob(builder *ReportBuilder, alerts *AlertDispatcher, l *logger.Logger) *RefreshJob {
	if l == nil {
		l = logger.NewNop()
	}
	return &RefreshJob{builder: builder, alerts: alerts, l: l}
}

// SetLocks enables the cross-instance refresh lock.
func (j *RefreshJob) SetLocks(locks RefreshLocker) { j.locks = locks }

func (j *RefreshJob) Name() string { return "report_refresh" }

func (j *RefreshJob) Type() string { return RefreshMessageType }

func (j *RefreshJob) Handle(ctx context.Context, payload any) error {
	p, err := queue.ParsePayload[RefreshPayload](payload)
	if err != nil {
		return fmt.Errorf("refresh payload: %w", err)
	}

	if j.locks != nil {
		lockKey := "refresh:" + p.MetricID
		held, lockErr := j.locks.TryLock(ctx, lockKey, refreshLockTTL)
		switch {
		case lockErr != nil:
			// refresh anyway when the lock store is down
			j.l.Warn("refresh lock", logger.String("metric", p.MetricID), logger.Error(lockErr))
		case !held:
			j.l.Debug("refresh running elsewhere", logger.String("metric", p.MetricID))
			return nil
		default:
			defer func() { _ = j.locks.Unlock(ctx, lockKey) }()
		}
	}

	w := domrepo.NormalizeWindow(p.Window)
	snap, err := j.builder.Refresh(ctx, p.MetricID, w, p.Limit)
	if err != nil {
		return err
	}

	j.alerts.Evaluate(ctx, p.MetricID, snap.LastValue, snap.Threshold)

	j.l.Info("report refreshed",
		logger.String("metric", p.MetricID),
		logger.String("window", string(w)),
		logger.String("trend", string(snap.TrendDirection)),
		logger.Float64("volatility", snap.VolatilityScore))
	return nil
}

var _ queue.Job = (*RefreshJob)(nil)

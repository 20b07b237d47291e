package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"OpsPulse/pkg/logger"
	"OpsPulse/pkg/queue"
)

// RefreshTarget is one metric the background refresh keeps warm.
type RefreshTarget struct {
	MetricID string
	Window   string
	Limit    int
}

// RefreshScheduler periodically enqueues a refresh job per tracked
// metric. The heavy lifting happens in queue workers, so a slow rebuild
// never blocks the schedule.
type RefreshScheduler struct {
	c       *cron.Cron
	queue   queue.QueueService
	targets []RefreshTarget
	spec    string
	alerts  *AlertDispatcher
	l       *logger.Logger
}

func NewRefreshScheduler(q queue.QueueService, targets []RefreshTarget, spec string, alerts *AlertDispatcher, l *logger.Logger) *RefreshScheduler {
	if spec == "" {
		spec = "@every 5m"
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &RefreshScheduler{
		c:       cron.New(),
		queue:   q,
		targets: targets,
		spec:    spec,
		alerts:  alerts,
		l:       l,
	}
}

func (s *RefreshScheduler) Start() error {
	if _, err := s.c.AddFunc(s.spec, s.enqueueAll); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", s.spec, err)
	}
	// hourly housekeeping of the alert limiter
	if _, err := s.c.AddFunc("@hourly", func() { s.alerts.Prune() }); err != nil {
		return fmt.Errorf("prune schedule: %w", err)
	}
	s.c.Start()
	s.l.Info("refresh scheduler started",
		logger.String("spec", s.spec),
		logger.Int("metrics", len(s.targets)))
	return nil
}

func (s *RefreshScheduler) enqueueAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, t := range s.targets {
		payload := RefreshPayload{MetricID: t.MetricID, Window: t.Window, Limit: t.Limit}
		if err := s.queue.PublishMessage(ctx, RefreshMessageType, payload); err != nil {
			s.l.Error("refresh enqueue failed",
				logger.String("metric", t.MetricID),
				logger.Error(err))
			continue
		}
		s.l.Debug("refresh enqueued", logger.String("metric", t.MetricID))
	}
}

// Stop halts the schedule and returns once running entries finish.
func (s *RefreshScheduler) Stop() {
	<-s.c.Stop().Done()
}
